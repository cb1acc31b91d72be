package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// IdentityService verifies bearer tokens issued by the identity provider and
// yields the principal every entry operation is scoped to.
type IdentityService struct {
	jwtSecret string
	jwtExpiry time.Duration
}

func NewIdentityService(jwtSecret string, jwtExpiry time.Duration) *IdentityService {
	return &IdentityService{
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// GenerateJWT signs a token for principal. Used by local tooling; production
// tokens come from the identity provider.
func (s *IdentityService) GenerateJWT(principal string) (string, error) {
	if principal == "" {
		return "", errors.New("principal is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principal,
		"exp": now.Add(s.jwtExpiry).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Principal verifies tokenString and returns the principal it names: the
// "sub" claim, or "user_id" for older tokens.
func (s *IdentityService) Principal(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	for _, key := range []string{"sub", "user_id"} {
		if principal, _ := claims[key].(string); principal != "" {
			return principal, nil
		}
	}

	return "", fmt.Errorf("%w: no principal claim", ErrInvalidToken)
}
