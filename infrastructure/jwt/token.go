// Package jwt validates HMAC-signed bearer tokens.
package jwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by ParseBearer.
var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidFormat = errors.New("invalid authorization header format")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims are the claims carried by admin tokens.
type Claims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

// ParseBearer validates an "Authorization: Bearer <token>" header value
// against secret and returns its claims.
func ParseBearer(header, secret string) (*Claims, error) {
	if header == "" {
		return nil, ErrMissingToken
	}

	scheme, tokenString, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
		return nil, ErrInvalidFormat
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, isHMAC := token.Method.(*jwt.SigningMethodHMAC); !isHMAC {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Sign issues an HS256 token for subject. Used by the admin CLI and tests.
func Sign(secret string, claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
