package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer([]byte("super-secret"), time.Hour)

	tok, err := ti.Issue("user-123")
	require.NoError(t, err)

	got, err := ti.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer([]byte("secret"), 7*24*time.Hour)
	issuedAt := time.Now()
	ti.now = func() time.Time { return issuedAt }

	tok, err := ti.Issue("u1")
	require.NoError(t, err)

	ti.now = func() time.Time { return issuedAt.Add(7*24*time.Hour + time.Minute) }
	_, err = ti.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	ti.now = func() time.Time { return issuedAt.Add(6 * 24 * time.Hour) }
	_, err = ti.Verify(tok)
	assert.NoError(t, err)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("right-secret"), time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("wrong-secret"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer([]byte("k"), time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := ti.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RequiresExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u"}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_LinkCodesAreNotSessions(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer([]byte("k"), time.Hour)

	code, expiresAt, err := ti.IssueLinkCode("u3", 10*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	_, err = ti.Verify(code)
	assert.ErrorIs(t, err, ErrInvalidToken)

	got, err := ti.VerifyLinkCode(code)
	require.NoError(t, err)
	assert.Equal(t, "u3", got)

	session, err := ti.Issue("u3")
	require.NoError(t, err)
	_, err = ti.VerifyLinkCode(session)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
