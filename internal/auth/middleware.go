package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/repo"
)

type contextKey struct{}

var currentUserKey contextKey

// CurrentUser returns the authenticated user resolved by the
// middleware, if any.
func CurrentUser(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(currentUserKey).(*entity.User)
	return u, ok
}

// Middleware resolves a request token into a request-scoped identity
// and gates by role. Every code path resolves to an explicit 401/403 or
// calls through; nothing escapes to the transport layer.
type Middleware struct {
	tokens *TokenService
	store  repo.Store
	logger *zap.SugaredLogger
}

func NewMiddleware(tokens *TokenService, store repo.Store, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{tokens: tokens, store: store, logger: logger}
}

// resolve walks token extraction, verification and user load. It
// returns the user or the status/message the caller should reject with.
func (m *Middleware) resolve(r *http.Request) (*entity.User, int, string) {
	token, ok := AccessTokenFromRequest(r)
	if !ok {
		return nil, http.StatusUnauthorized, "access token required"
	}
	claims, err := m.tokens.VerifyAccess(token)
	if err != nil {
		m.logger.Debugw("token rejected", "err", err)
		return nil, http.StatusUnauthorized, "invalid or expired token"
	}
	u, err := m.store.GetByID(r.Context(), claims.UserID)
	if err != nil || !u.IsActive() {
		if err != nil {
			m.logger.Debugw("token user lookup failed", "userId", claims.UserID, "err", err)
		}
		return nil, http.StatusUnauthorized, "user not found or inactive"
	}
	return u, 0, ""
}

// Require authenticates the request and, when roles are given, demands
// the resolved role be one of them. 401s cover the unauthenticated
// family; a valid identity with the wrong role gets 403.
func (m *Middleware) Require(roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, status, msg := m.resolve(r)
			if u == nil {
				reject(w, status, msg)
				return
			}
			if len(roles) > 0 && !roleAllowed(u.Role, roles) {
				reject(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, u)))
		})
	}
}

// Optional performs the same resolution but proceeds unauthenticated on
// any failure, for routes that personalize when possible.
func (m *Middleware) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, _, _ := m.resolve(r); u != nil {
				r = r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(role entity.Role, allowed []entity.Role) bool {
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
