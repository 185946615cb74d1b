// Package auth mints and validates the session tokens carried as
// WebSocket subprotocol negotiation tokens between the voice client
// and a self-hosted relay.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims in a voice session token.
type SessionClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// GenerateSessionToken mints an HS256 token for a voice client.
func GenerateSessionToken(clientID string, secret []byte, ttl time.Duration) (string, error) {
	claims := &SessionClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateSessionToken verifies the signature and expiry and returns
// the claims.
func ValidateSessionToken(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// TokenExpired reports whether a token is already past its expiry
// without checking the signature. The client uses this to warn before
// attempting a doomed handshake; the relay still does the real check.
func TokenExpired(tokenString string) bool {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().After(claims.ExpiresAt.Time)
}
