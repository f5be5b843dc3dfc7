package services

const (
	verificationBasePoints = 50
	// bonus when the verifier stood within proximityMeters of the tree
	proximityBonus  = 30
	proximityMeters = 20.0
	// bonus for the optional second photo of the surroundings
	locationPhotoBonus = 20
)

// ScoreVerification returns the points an approved verification earns.
func ScoreVerification(distanceMeters float64, hasLocationPhoto bool) int {
	points := verificationBasePoints
	if distanceMeters < proximityMeters {
		points += proximityBonus
	}
	if hasLocationPhoto {
		points += locationPhotoBonus
	}
	return points
}
