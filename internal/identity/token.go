package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/types"
)

// accessClaims are the JWT claims carried by issued access tokens
type accessClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer issues signed access tokens for authenticated users
type JWTIssuer struct {
	config *config.JWTConfig
}

// NewJWTIssuer creates a new JWT issuer
func NewJWTIssuer(cfg *config.JWTConfig) *JWTIssuer {
	return &JWTIssuer{config: cfg}
}

// Issue creates a signed access token for the given user
func (j *JWTIssuer) Issue(user *types.User) (*types.AuthToken, error) {
	now := time.Now()
	ttl := time.Duration(j.config.AccessTokenTTL) * time.Second

	claims := &accessClaims{
		UserID: user.ID,
		Name:   user.Name,
		Mobile: user.Mobile,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.config.Issuer,
			Audience:  jwt.ClaimStrings{j.config.Audience},
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &types.AuthToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		IssuedAt:    now,
		User:        user,
	}, nil
}
