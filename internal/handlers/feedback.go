package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/internal/validation"
)

type FeedbackResponse struct {
	Success  bool             `json:"success"`
	Feedback *models.Feedback `json:"feedback"`
}

// UpdateFeedbackRequest is the body of PUT /api/feedback.
type UpdateFeedbackRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListFeedback returns feedback newest first, narrowed by the search,
// status and department query parameters.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := store.FeedbackQuery{
		Search:     strings.TrimSpace(q.Get("search")),
		Status:     strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Department: strings.TrimSpace(q.Get("department")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	feedbacks, err := h.Feedback.List(ctx, query)
	if err != nil {
		h.internalError(w, "list feedback failed", err, "Failed to fetch feedback")
		return
	}
	if feedbacks == nil {
		feedbacks = []models.Feedback{}
	}
	writeJSON(w, http.StatusOK, feedbacks)
}

// GetFeedback returns one feedback record by id.
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	f, err := h.Feedback.Get(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid feedback ID")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Feedback not found")
		return
	case err != nil:
		h.internalError(w, "get feedback failed", err, "Failed to fetch feedback")
		return
	}
	writeJSON(w, http.StatusOK, FeedbackResponse{Success: true, Feedback: f})
}

// CreateFeedback records the outcome of a citizen call.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var in validation.FeedbackInput
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

	if in.Department != "" {
		ok, err := h.checkDepartment(ctx, w, string(in.Department))
		if !ok {
			if err != nil {
				h.internalError(w, "department lookup failed", err, "Failed to validate department")
			}
			return
		}
	}

	if in.SubmittedBy == "" {
		if p, ok := middleware.PrincipalFrom(r.Context()); ok {
			in.SubmittedBy = validation.LooseString(p.Username)
		}
	}

	f := in.Feedback(h.now())
	if err := h.Feedback.Create(ctx, &f); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Feedback with this call ID already exists")
			return
		}
		h.internalError(w, "create feedback failed", err, "Failed to save feedback")
		return
	}

	h.Log.Info("feedback created",
		zap.String("id", f.ID.Hex()),
		zap.String("call_id", f.CallID),
		zap.String("satisfaction", string(f.Satisfaction)),
	)
	h.publish(r.Context(), services.FeedbackEvent{Type: services.EventFeedbackCreated, Feedback: &f, Timestamp: h.now().UTC()})
	writeJSON(w, http.StatusCreated, FeedbackResponse{Success: true, Feedback: &f})
}

// checkDepartment answers 400 with the known department names when name
// does not exist. A non-nil error means the lookup itself failed.
func (h *Handler) checkDepartment(ctx context.Context, w http.ResponseWriter, name string) (bool, error) {
	_, err := h.Departments.FindByName(ctx, name)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	depts, err := h.Departments.List(ctx)
	if err != nil {
		return false, err
	}
	writeError(w, http.StatusBadRequest,
		"Department not found. Available departments: "+strings.Join(models.DepartmentNames(depts), ", "))
	return false, nil
}

// UpdateFeedback changes the status of a feedback record.
func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	var req UpdateFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if !primitive.IsValidObjectID(req.ID) {
		writeError(w, http.StatusBadRequest, "Invalid feedback ID")
		return
	}
	status := models.FeedbackStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be one of: pending, resolved")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	f, err := h.Feedback.UpdateStatus(ctx, req.ID, status)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid feedback ID")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Feedback not found")
		return
	case err != nil:
		h.internalError(w, "update feedback failed", err, "Failed to update feedback")
		return
	}

	h.record(r, "feedback.status", "feedback", f.ID.Hex(), string(status))
	h.publish(r.Context(), services.FeedbackEvent{Type: services.EventFeedbackUpdated, Feedback: f, Timestamp: h.now().UTC()})
	writeJSON(w, http.StatusOK, FeedbackResponse{Success: true, Feedback: f})
}
