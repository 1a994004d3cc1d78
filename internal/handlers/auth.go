package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

// LoginRequest is the body of both login endpoints.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSummary is the public view of the signed-in account.
type UserSummary struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Type     models.UserType `json:"type"`
	Active   bool            `json:"active"`
}

type LoginResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
	Token   string      `json:"token"`
}

type MeResponse struct {
	Success bool               `json:"success"`
	User    services.Principal `json:"user"`
}

// AdminLogin signs in admins and managers, falling back to the legacy admin collection.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, services.LoginAdmin)
}

// ExecutiveLogin signs in call-center executives.
func (h *Handler) ExecutiveLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, services.LoginExecutive)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, kind services.LoginKind) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := services.CheckCredentials(ctx, h.Users, kind, req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		h.Log.Info("login rejected", zap.String("kind", string(kind)), zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, services.ErrInactiveAccount):
		writeError(w, http.StatusUnauthorized, "Account is inactive. Please contact administrator.")
		return
	case err != nil:
		h.internalError(w, "login lookup failed", err, "Internal server error")
		return
	}

	h.upgradePassword(ctx, user, req.Password)

	principal := services.Principal{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Type:     user.Type,
	}
	token, err := h.Sessions.Create(ctx, principal)
	if err != nil {
		h.internalError(w, "create session failed", err, "Failed to create session")
		return
	}

	r = r.WithContext(middleware.WithPrincipal(r.Context(), &principal))
	h.record(r, "login", "session", principal.UserID, string(kind))

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Login successful",
		User: UserSummary{
			ID:       principal.UserID,
			Username: user.Username,
			Type:     user.Type,
			Active:   user.Active,
		},
		Token: token,
	})
}

// upgradePassword replaces a plain-text password with its hash after a
// successful login. Legacy adminC records are read-only and stay untouched.
func (h *Handler) upgradePassword(ctx context.Context, user *models.User, password string) {
	if utils.IsHashed(user.Password) {
		return
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		h.Log.Warn("hash password failed", zap.Error(err))
		return
	}
	upgraded := *user
	upgraded.Password = hash
	switch err := h.Users.Update(ctx, &upgraded); {
	case err == nil:
		h.Log.Info("password upgraded to argon2id", zap.String("username", user.Username))
	case errors.Is(err, store.ErrNotFound):
	default:
		h.Log.Warn("password upgrade failed", zap.String("username", user.Username), zap.Error(err))
	}
}

// Logout invalidates the caller's session token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.Invalidate(ctx, token); err != nil {
		h.internalError(w, "invalidate session failed", err, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

// Me returns the principal behind the bearer token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Success: true, User: *p})
}
