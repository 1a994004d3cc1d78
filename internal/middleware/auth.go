package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/services"
)

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *services.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*services.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*services.Principal)
	return p, ok && p != nil
}

// BearerToken reads the session token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Auth resolves session tokens into principals and enforces roles.
type Auth struct {
	sessions services.SessionStore
	required bool
	log      *zap.Logger
}

// NewAuth returns an Auth. With required false, RequireRoles lets anonymous
// requests through; principals are still attached when a valid token is sent.
func NewAuth(sessions services.SessionStore, required bool, log *zap.Logger) *Auth {
	return &Auth{sessions: sessions, required: required, log: log}
}

func (a *Auth) Required() bool { return a.required }

// Authenticate attaches the principal behind a valid token. It never rejects.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		p, err := a.sessions.Lookup(ctx, token)
		cancel()
		switch {
		case err == nil:
			r = r.WithContext(WithPrincipal(r.Context(), p))
		case !errors.Is(err, services.ErrSessionNotFound):
			a.log.Warn("session lookup failed", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles rejects requests without a principal (401) or whose principal
// type is not in roles (403). An empty roles list admits any signed-in user.
func (a *Auth) RequireRoles(roles ...models.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.required {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, p.Type) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
