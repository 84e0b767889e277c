package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

var ErrTokenKind = errors.New("wrong token kind")

// TokenClaims is what the service reads back from a verified token.
type TokenClaims struct {
	UserID    uint
	Kind      string
	ID        string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for userID. The returned claims carry the
// generated token id.
func IssueToken(secret []byte, userID uint, kind string, ttl time.Duration) (string, TokenClaims, error) {
	tc := TokenClaims{
		UserID:    userID,
		Kind:      kind,
		ID:        uuid.NewString(),
		ExpiresAt: time.Now().Add(ttl),
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"typ":     kind,
		"jti":     tc.ID,
		"exp":     tc.ExpiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", TokenClaims{}, err
	}
	return signed, tc, nil
}

// ParseToken verifies signature and expiry and checks the token kind.
func ParseToken(secret []byte, tokenString, kind string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return TokenClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return TokenClaims{}, errors.New("invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != kind {
		return TokenClaims{}, ErrTokenKind
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return TokenClaims{}, errors.New("token has no user")
	}

	tc := TokenClaims{UserID: uint(id), Kind: kind}
	tc.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}
