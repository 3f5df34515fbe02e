package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// LinkAudience marks short-lived codes that bind a LINE account. Session
// tokens carry no audience.
const LinkAudience = "line-link"

// Claims holds the registered claims plus the user the token speaks for.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenIssuer signs and verifies HS256 tokens with a single server secret.
// Nothing is stored server-side: a token is valid iff its signature checks
// out and it has not expired.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a session token for userID.
func (ti *TokenIssuer) Issue(userID string) (string, error) {
	token, _, err := ti.sign(userID, "", ti.ttl)
	return token, err
}

// Verify returns the user id embedded in a session token.
func (ti *TokenIssuer) Verify(token string) (string, error) {
	claims, err := ti.parse(token)
	if err != nil {
		return "", err
	}
	if len(claims.Audience) != 0 {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// IssueLinkCode returns a code that proves ownership of userID for ttl.
func (ti *TokenIssuer) IssueLinkCode(userID string, ttl time.Duration) (string, time.Time, error) {
	return ti.sign(userID, LinkAudience, ttl)
}

func (ti *TokenIssuer) VerifyLinkCode(code string) (string, error) {
	claims, err := ti.parse(code, jwt.WithAudience(LinkAudience))
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (ti *TokenIssuer) sign(userID, audience string, ttl time.Duration) (string, time.Time, error) {
	now := ti.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (ti *TokenIssuer) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
