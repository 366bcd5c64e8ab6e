package middleware

import (
	"context"
	"net/http"
	"strings"

	"plus-api/internal/model"
	"plus-api/internal/service"
	"plus-api/pkg/apierror"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// AdminKeyHeader carries the admin key.
const AdminKeyHeader = "X-Admin-Key"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	TokenService *service.TokenService
	// AdminKeyHash is a bcrypt hash. Empty disables admin routes.
	AdminKeyHash string
	Logger       *zap.Logger
}

// Auth builds the authentication middlewares from injected dependencies.
type Auth struct {
	cfg AuthConfig
}

func NewAuth(cfg AuthConfig) *Auth {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Auth{cfg: cfg}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequirePlayer rejects requests without a valid player token.
func (a *Auth) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || a.cfg.TokenService == nil {
			writeError(w, apierror.Unauthorized("Bearer token required"))
			return
		}

		data, err := a.cfg.TokenService.ValidateToken(token)
		if err != nil {
			writeError(w, apierror.Unauthorized("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), TokenDataKey, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalPlayer attaches token data when a valid token is present. An
// invalid token is still rejected so clients notice expiry.
func (a *Auth) OptionalPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		a.RequirePlayer(next).ServeHTTP(w, r)
	})
}

// RequireAdmin checks X-Admin-Key against the configured bcrypt hash.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.AdminKeyHash == "" {
			writeError(w, apierror.Forbidden("Admin access is not configured"))
			return
		}

		key := r.Header.Get(AdminKeyHeader)
		if key == "" {
			writeError(w, apierror.Unauthorized("Admin key required"))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminKeyHash), []byte(key)); err != nil {
			a.cfg.Logger.Warn("admin key rejected",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
			)
			writeError(w, apierror.Forbidden("Invalid admin key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
