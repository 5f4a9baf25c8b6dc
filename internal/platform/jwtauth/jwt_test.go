package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talanta/pkg/domain"
	dErrors "talanta/pkg/domainerrors"
)

func TestService_RoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "talanta")
	userID := id.NewUserID()

	token, err := svc.GenerateAccessToken(userID, "CITIZEN", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "CITIZEN", claims.Role)
	assert.NotEmpty(t, claims.JTI)
}

func TestService_RejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", "talanta")

	token, err := svc.GenerateAccessToken(id.NewUserID(), "CITIZEN", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestService_RejectsForeignKey(t *testing.T) {
	issuer := NewService("key-one", "talanta")
	verifier := NewService("key-two", "talanta")

	token, err := issuer.GenerateAccessToken(id.NewUserID(), "CITIZEN", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestService_RejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "talanta")
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
