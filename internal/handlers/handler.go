// Package handlers implements the JSON API on top of the stores and services.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/audit"
	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/internal/validation"
)

const requestTimeout = 5 * time.Second

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	Feedback    store.FeedbackStore
	Users       store.UserStore
	Departments store.DepartmentStore
	Sessions    services.SessionStore
	Events      services.Publisher // nil disables realtime publishing
	Hub         *services.Hub
	Audit       audit.Recorder
	Archive     services.ReportArchive // nil when Cloudinary is not configured
	Location    *time.Location         // report timezone
	Log         *zap.Logger
	Now         func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by mutations that carry no payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeValidation answers a *validation.Error with 400 and anything else with 500.
func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	h.Log.Error("validation failed unexpectedly", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// internalError logs err with the operation name and answers 500 with message.
func (h *Handler) internalError(w http.ResponseWriter, op string, err error, message string) {
	h.Log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message)
}

// actor names the caller in audit events.
func actor(r *http.Request) string {
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		return p.Username
	}
	return "anonymous"
}

// record writes an audit event without failing the request.
func (h *Handler) record(r *http.Request, action, entity, entityID, details string) {
	if h.Audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	err := h.Audit.Record(ctx, audit.Event{
		Actor:     actor(r),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: middleware.ClientIP(r),
	})
	if err != nil {
		h.Log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

// publish sends a feedback event without failing the request.
func (h *Handler) publish(ctx context.Context, event services.FeedbackEvent) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.Events.Publish(ctx, event); err != nil {
		h.Log.Warn("publish feedback event failed", zap.String("type", event.Type), zap.Error(err))
	}
}
