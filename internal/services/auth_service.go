package services

import (
	"context"
	"errors"
	"time"

	"roamly-chat/config"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService verifies access tokens minted by the platform's auth service.
// Issuance, refresh and sessions live there; this side only parses.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, roamly_errors.ErrUnauthorized
	}
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, roamly_errors.ErrUnauthorized
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, roamly_errors.ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, roamly_errors.ErrUnauthorized
	}
	return claims, nil
}

type userCtxKey struct{}

// WithUserContext stores the authenticated user on the request context.
func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

// UserIDFromContext returns the authenticated user id placed by the auth
// middleware or websocket handshake.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userCtxKey{}).(uuid.UUID)
	return id, ok
}
