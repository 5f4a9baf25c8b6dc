// Package trust applies verification outcomes to a user's trust score
// and profile flags.
package trust

import (
	"strings"

	"talanta/internal/verification/models"
)

const (
	// Reward is the score credit for one successful verification.
	Reward = 10
	// MaxScore caps the trust score; credits past the cap are forfeited.
	MaxScore = 100
)

// Apply credits the user for a successful verification of the given
// document type and returns the delta actually applied, which is less
// than Reward when the score is near the cap.
//
// A national ID additionally marks the profile verified and, when the
// profile has no name yet, adopts the name parsed from the document.
// A name already on the profile is never overwritten.
func Apply(user *models.User, docType models.DocumentType, idFields models.IDFields) int {
	before := user.TrustScore
	user.TrustScore += Reward
	if user.TrustScore > MaxScore {
		user.TrustScore = MaxScore
	}

	if docType == models.DocumentNationalID {
		user.IsVerified = true
		if strings.TrimSpace(user.FullName) == "" && idFields.FullName != "" {
			user.FullName = idFields.FullName
		}
	}

	return user.TrustScore - before
}
