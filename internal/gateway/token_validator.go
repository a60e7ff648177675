package gateway

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Yadlapure/health-care/pkg/types"
)

// TokenValidator implements JWT token validation
type TokenValidator struct {
	jwtSecret []byte
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{
		jwtSecret: []byte(secret),
	}
}

// JWTClaims mirrors the claims issued by the identity service
type JWTClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateJWT validates a JWT token and returns user claims
func (tv *TokenValidator) ValidateJWT(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tv.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	return &types.UserClaims{
		UserID: claims.UserID,
		Name:   claims.Name,
		Mobile: claims.Mobile,
		Role:   types.UserRole(claims.Role),
	}, nil
}

// RefreshToken issues a new token carrying the same claims with a fresh
// expiration window
func (tv *TokenValidator) RefreshToken(tokenString string) (*types.AuthToken, error) {
	claims, err := tv.ValidateJWT(tokenString)
	if err != nil {
		return nil, fmt.Errorf("cannot refresh invalid token: %w", err)
	}

	newToken, err := tv.generateToken(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new token: %w", err)
	}

	return newToken, nil
}

func (tv *TokenValidator) generateToken(claims *types.UserClaims) (*types.AuthToken, error) {
	now := time.Now()
	ttl := 24 * time.Hour

	jwtClaims := &JWTClaims{
		UserID: claims.UserID,
		Name:   claims.Name,
		Mobile: claims.Mobile,
		Role:   string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "health-care-gateway",
			Subject:   claims.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	tokenString, err := token.SignedString(tv.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &types.AuthToken{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		IssuedAt:    now,
	}, nil
}
