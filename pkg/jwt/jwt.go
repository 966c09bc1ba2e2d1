// Package jwt issues and validates the embed tokens third-party pages use
// to mount the widget. A token binds a visitor namespace to the origin the
// widget was issued for.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-widget-demo/engine/pkg/secrets"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carried by an embed token
type Claims struct {
	VisitorID string `json:"visitor_id"`
	Origin    string `json:"origin"`
	jwt.RegisteredClaims
}

// Service signs and validates embed tokens
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a token service. An empty secret falls back to the
// secrets manager, then to a development-only default.
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = secrets.GetSecretWithDefault(context.Background(), "JWT_SECRET",
			"devJwtSecretDoNotUseInProduction")
	}
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Service{secretKey: secretKey, expiry: expiry}
}

// GenerateToken mints an embed token for a visitor namespace and origin
func (s *Service) GenerateToken(visitorID, origin string) (string, error) {
	now := time.Now()
	claims := &Claims{
		VisitorID: visitorID,
		Origin:    origin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken parses and validates an embed token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(s.secretKey), nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.VisitorID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
