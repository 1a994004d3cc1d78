package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/internal/validation"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

const lastAdminMessage = "Cannot remove the last active admin"

type UserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// SetActiveRequest is the body of PATCH /api/users/{id}/active.
type SetActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.internalError(w, "list users failed", err, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in validation.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		h.writeValidation(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	taken, err := h.Users.UsernameTaken(ctx, in.Username, "")
	if err != nil {
		h.internalError(w, "username check failed", err, "Failed to create user")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		h.internalError(w, "hash password failed", err, "Failed to create user")
		return
	}

	userType, _ := models.ParseUserType(in.Type)
	u := models.User{
		Username: in.Username,
		Password: hash,
		Type:     userType,
		Active:   in.Active == nil || *in.Active,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Username already exists")
			return
		}
		h.internalError(w, "create user failed", err, "Failed to create user")
		return
	}

	h.record(r, "user.create", "user", u.ID.Hex(), u.Username+" ("+string(u.Type)+")")
	writeJSON(w, http.StatusCreated, UserResponse{Success: true, Message: "User created successfully", User: &u})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var in validation.UpdateUser
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		h.writeValidation(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	current, ok := h.loadUser(ctx, w, id)
	if !ok {
		return
	}

	userType, _ := models.ParseUserType(in.Type)
	active := current.Active
	if in.Active != nil {
		active = *in.Active
	}
	if current.Type == models.UserTypeAdmin && current.Active && (userType != models.UserTypeAdmin || !active) {
		if !h.otherAdminsRemain(ctx, w) {
			return
		}
	}

	taken, err := h.Users.UsernameTaken(ctx, in.Username, id)
	if err != nil {
		h.internalError(w, "username check failed", err, "Failed to update user")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}

	u := models.User{ID: oid, Username: in.Username, Type: userType, Active: active}
	if in.Password != "" {
		if u.Password, err = utils.HashPassword(in.Password); err != nil {
			h.internalError(w, "hash password failed", err, "Failed to update user")
			return
		}
	}
	err = h.Users.Update(ctx, &u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "Username already exists")
		return
	case err != nil:
		h.internalError(w, "update user failed", err, "Failed to update user")
		return
	}

	// Sessions carry username and type, so any change signs the user out.
	if in.Password != "" || !active || current.Username != u.Username || current.Type != u.Type {
		h.dropSessions(ctx, id)
	}
	h.record(r, "user.update", "user", id, u.Username)
	writeJSON(w, http.StatusOK, UserResponse{Success: true, Message: "User updated successfully", User: &u})
}

func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, "active must be true or false")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	current, ok := h.loadUser(ctx, w, id)
	if !ok {
		return
	}
	if !*req.Active && current.Type == models.UserTypeAdmin && current.Active {
		if !h.otherAdminsRemain(ctx, w) {
			return
		}
	}

	u, err := h.Users.SetActive(ctx, id, *req.Active)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.internalError(w, "set user active failed", err, "Failed to update user")
		return
	}

	action := "user.enable"
	message := "User enabled successfully"
	if !u.Active {
		action = "user.disable"
		message = "User disabled successfully"
		h.dropSessions(ctx, id)
	}
	h.record(r, action, "user", id, u.Username)
	writeJSON(w, http.StatusOK, UserResponse{Success: true, Message: message, User: u})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	current, ok := h.loadUser(ctx, w, id)
	if !ok {
		return
	}
	if current.Type == models.UserTypeAdmin && current.Active {
		if !h.otherAdminsRemain(ctx, w) {
			return
		}
	}

	err := h.Users.Delete(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.internalError(w, "delete user failed", err, "Failed to delete user")
		return
	}

	h.dropSessions(ctx, id)
	h.record(r, "user.delete", "user", id, current.Username)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "User deleted successfully"})
}

func (h *Handler) loadUser(ctx context.Context, w http.ResponseWriter, id string) (*models.User, bool) {
	u, err := h.Users.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return nil, false
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return nil, false
	case err != nil:
		h.internalError(w, "get user failed", err, "Failed to fetch user")
		return nil, false
	}
	return u, true
}

// otherAdminsRemain answers 409 when the active admin being changed is the
// only one left.
func (h *Handler) otherAdminsRemain(ctx context.Context, w http.ResponseWriter) bool {
	n, err := h.Users.CountActiveAdmins(ctx)
	if err != nil {
		h.internalError(w, "count admins failed", err, "Failed to update user")
		return false
	}
	if n <= 1 {
		writeError(w, http.StatusConflict, lastAdminMessage)
		return false
	}
	return true
}

func (h *Handler) dropSessions(ctx context.Context, userID string) {
	if err := h.Sessions.InvalidateUser(ctx, userID); err != nil {
		h.Log.Warn("invalidate user sessions failed", zap.String("user_id", userID), zap.Error(err))
	}
}
