package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cgportal/feedback-backend/internal/audit"
)

type AuditResponse struct {
	Success bool          `json:"success"`
	Events  []audit.Event `json:"events"`
}

// ListAudit returns the most recent audit events, newest first.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	events, err := h.Audit.Recent(ctx, audit.ClampLimit(limit))
	if errors.Is(err, audit.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Audit trail is not available")
		return
	}
	if err != nil {
		h.internalError(w, "list audit events failed", err, "Failed to fetch audit events")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, AuditResponse{Success: true, Events: events})
}
