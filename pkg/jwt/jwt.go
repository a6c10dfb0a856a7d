package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated principal of a connection. The account
// service issues these tokens; this hub only verifies them.
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

type Service struct {
	secretKey []byte
}

// NewService creates a token verification service
func NewService(secretKey string) *Service {
	return &Service{secretKey: []byte(secretKey)}
}

// ValidateToken validates and parses a bearer token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid access token: missing user_id")
	}

	if claims.DisplayName == "" {
		return nil, fmt.Errorf("invalid access token: missing display_name")
	}

	return claims, nil
}
