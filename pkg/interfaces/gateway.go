package interfaces

import (
	"github.com/Yadlapure/health-care/pkg/types"
)

// TokenValidator defines the interface for token validation
type TokenValidator interface {
	ValidateJWT(token string) (*types.UserClaims, error)
	RefreshToken(token string) (*types.AuthToken, error)
}

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(userID string) (bool, error)
	Reset(userID string) error
	GetLimits(userID string) (int, int, error) // current, limit
}
