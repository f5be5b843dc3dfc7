// Package models defines server-side data models persisted in the database.
package models

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

// Profile holds the gamification state of one user account. Level is always
// derived from Points through the level table.
type Profile struct {
	UserID   string
	Points   int
	Level    int
	Role     Role
	AvatarID *string
	// Staff mirrors the account's staff/superuser flag. Staff submissions
	// earn no points and staff are left out of the leaderboard.
	Staff bool

	VerificationsPerformed int
	VerificationsApproved  int
	VerificationPoints     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Elevated reports whether the profile belongs to staff or an admin.
func (p *Profile) Elevated() bool {
	return p.Staff || p.Role == RoleAdmin
}
