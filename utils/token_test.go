package authUtils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	in := Identity{UID: "u1", Email: "a@b.in", EmailVerified: true, Phone: "+919876543210", Name: "Asha"}

	token, err := m.GenerateToken(in)
	require.NoError(t, err)

	out, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestVerifyRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	other, err := NewTokenManager("other", time.Hour).GenerateToken(Identity{UID: "u1"})
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(Identity{UID: "u1"})
	require.NoError(t, err)
	_, err = m.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Verify(noUID)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour).GenerateToken(Identity{UID: "u1"})
	assert.Error(t, err)
}
