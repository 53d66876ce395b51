package utils

import (
	"testing"
	"time"

	"oficina/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-0123456789abcdef0123456789"

func TestSessionTokenRoundTrip(t *testing.T) {
	id := domain.Identity{UserID: 7, Name: "Carlos", Role: domain.RoleEmployee}
	token, err := GenerateJWT(id, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Carlos", claims.Name)
	assert.Equal(t, domain.RoleEmployee, claims.Role)
}

func TestParseJWTRejects(t *testing.T) {
	id := domain.Identity{UserID: 1, Name: "Ana", Role: domain.RoleAdmin}
	expired, err := GenerateJWT(id, secret, -time.Minute)
	require.NoError(t, err)
	valid, err := GenerateJWT(id, secret, time.Hour)
	require.NoError(t, err)
	view, _, err := GenerateViewToken(3, secret, time.Hour)
	require.NoError(t, err)

	for name, tc := range map[string]struct{ token, secret string }{
		"expired":      {expired, secret},
		"wrong secret": {valid, "another-secret-0123456789abcdef012345"},
		"garbage":      {"not.a.token", secret},
		"view token":   {view, secret},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestViewToken(t *testing.T) {
	token, expires, err := GenerateViewToken(7, secret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	orderID, err := ParseViewToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), orderID)

	expired, _, err := GenerateViewToken(7, secret, -time.Second)
	require.NoError(t, err)
	_, err = ParseViewToken(expired, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	session, err := GenerateJWT(domain.Identity{UserID: 7, Role: domain.RoleClient}, secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseViewToken(session, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
