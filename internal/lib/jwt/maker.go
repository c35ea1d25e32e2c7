// Package jwt implements generation and parsing of session tokens.
//
// Session tokens carry identity only (email and display name). Authorization
// state such as subscription status is never embedded in the token: it can
// change between sign-in and the current request, so every authorization
// decision re-reads the user record instead.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims holds the identity carried by a session token.
type SessionClaims struct {
	Email                string `json:"email"`
	Name                 string `json:"name"`
	jwt.RegisteredClaims        // standard claims (ExpiresAt, IssuedAt, ...)
}

// Maker issues and validates session tokens.
type Maker interface {
	GenerateToken(email, name string) (string, error)
	ParseToken(tokenStr string) (*SessionClaims, error)
}

// MakerImpl signs tokens with an HS256 shared secret.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker creates a Maker with the given signing secret and token lifetime.
func NewMaker(secretKey string, tokenTTL time.Duration) *MakerImpl {
	return &MakerImpl{secretKey: secretKey, tokenTTL: tokenTTL}
}

// GenerateToken creates a session token for the given identity.
func (j *MakerImpl) GenerateToken(email, name string) (string, error) {
	claims := SessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken validates a session token and returns its claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*SessionClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
