package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talanta/internal/verification/models"
)

func TestApply(t *testing.T) {
	t.Run("credits the full reward", func(t *testing.T) {
		u := models.User{TrustScore: 40}
		delta := Apply(&u, models.DocumentCertificate, models.IDFields{})

		assert.Equal(t, 10, delta)
		assert.Equal(t, 50, u.TrustScore)
		assert.False(t, u.IsVerified)
	})

	t.Run("clamps at the cap", func(t *testing.T) {
		u := models.User{TrustScore: 95}
		delta := Apply(&u, models.DocumentCertificate, models.IDFields{})

		assert.Equal(t, 5, delta)
		assert.Equal(t, 100, u.TrustScore)
	})

	t.Run("at the cap the delta is zero", func(t *testing.T) {
		u := models.User{TrustScore: 100}
		delta := Apply(&u, models.DocumentCertificate, models.IDFields{})

		assert.Zero(t, delta)
		assert.Equal(t, 100, u.TrustScore)
	})

	t.Run("national id marks the profile verified", func(t *testing.T) {
		u := models.User{FullName: "John Mwangi", TrustScore: 0}
		Apply(&u, models.DocumentNationalID, models.IDFields{FullName: "JOHN MWANGI KARIUKI"})

		assert.True(t, u.IsVerified)
		assert.Equal(t, "John Mwangi", u.FullName, "existing profile name never overwritten")
	})

	t.Run("national id fills an empty profile name", func(t *testing.T) {
		u := models.User{FullName: "  "}
		Apply(&u, models.DocumentNationalID, models.IDFields{FullName: "JOHN MWANGI KARIUKI"})

		assert.Equal(t, "JOHN MWANGI KARIUKI", u.FullName)
	})

	t.Run("repeated credits accumulate only to the cap", func(t *testing.T) {
		u := models.User{}
		total := 0
		for i := 0; i < 15; i++ {
			total += Apply(&u, models.DocumentCertificate, models.IDFields{})
		}
		assert.Equal(t, 100, total)
		assert.Equal(t, 100, u.TrustScore)
	})
}
