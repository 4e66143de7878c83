package services

import (
	"errors"
	"testing"
	"time"

	"warmwall/internal/apperr"
	"warmwall/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewTokenService("test-secret", 7*24*time.Hour)
	user := &models.User{ID: 9, Username: "alice", Role: models.RoleUser}

	before := time.Now()
	token, exp, err := s.Issue(user)
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.ID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)

	want := before.Add(7 * 24 * time.Hour)
	assert.WithinDuration(t, want, claims.ExpiresAt.Time, 2*time.Second)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestVerifyExpired(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour)
	token, err := s.Sign(Claims{
		ID:       1,
		Username: "bob",
		Role:     models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	require.NoError(t, err)

	_, err = s.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestVerifyExpiresWithClock(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour)
	token, _, err := s.Issue(&models.User{ID: 1, Username: "c"})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenService("one", time.Hour)
	verifier := NewTokenService("two", time.Hour)

	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingExp(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour)
	token, err := s.Sign(Claims{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour)
	_, err := s.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
