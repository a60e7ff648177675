package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Yadlapure/health-care/pkg/types"
)

// UserClaims is an alias for types.UserClaims for convenience
type UserClaims = types.UserClaims

type contextKey string

const claimsContextKey contextKey = "user_claims"

// publicPaths never require a bearer token
var publicPaths = map[string]bool{
	"/health":               true,
	"/metrics":              true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/login":    true,
}

func isPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/admin/")
}

// corsMiddleware handles CORS headers
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers
func (s *Service) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs requests and responses
func (s *Service) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		s.logger.HTTPRequest(r.Context(), r.Method, r.URL.Path, r.UserAgent(), r.RemoteAddr, recorder.statusCode, time.Since(start).Milliseconds(), nil)
	})
}

// authMiddleware validates bearer tokens and stamps the caller's identity
// onto the request for downstream services. Visit and identity services
// trust X-User-ID and X-User-Role because only the gateway can reach them.
func (s *Service) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeErrorResponse(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.writeErrorResponse(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := s.ValidateToken(parts[1])
		if err != nil {
			s.logger.WithError(err).Warn("Token validation failed")
			s.metrics.RecordAuthAttempt("jwt", "failure")
			s.writeErrorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s.metrics.RecordAuthAttempt("jwt", "success")

		r.Header.Set("X-User-ID", claims.UserID)
		r.Header.Set("X-User-Role", string(claims.Role))

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware applies per-user rate limiting
func (s *Service) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := r.Context().Value(claimsContextKey).(*UserClaims)
		if !ok {
			s.writeErrorResponse(w, http.StatusInternalServerError, "user claims not found in context")
			return
		}

		if err := s.ApplyRateLimit(claims.UserID); err != nil {
			s.logger.WithUserID(claims.UserID).Warn("Rate limit exceeded")
			s.writeErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the authenticated caller's claims, if any
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*UserClaims)
	return claims, ok
}

// responseRecorder captures response status code
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
