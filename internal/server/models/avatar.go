package models

// Avatar is an unlockable cosmetic. Avatars are reference data provisioned by
// an admin and never change afterwards.
type Avatar struct {
	ID            string
	Name          string
	Emoji         string
	RequiredLevel int
	Description   string
}
