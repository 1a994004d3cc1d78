package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/internal/validation"
)

type DepartmentResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Department *models.Department `json:"department"`
}

// ListDepartments returns every department, newest first.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	depts, err := h.Departments.List(ctx)
	if err != nil {
		h.internalError(w, "list departments failed", err, "Failed to fetch departments")
		return
	}
	if depts == nil {
		depts = []models.Department{}
	}
	writeJSON(w, http.StatusOK, depts)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeDepartment(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if !h.departmentUnique(ctx, w, in, "") {
		return
	}

	d := in.Department()
	if err := h.Departments.Create(ctx, &d); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Department name already exists")
			return
		}
		h.internalError(w, "create department failed", err, "Failed to create department")
		return
	}

	h.record(r, "department.create", "department", d.ID.Hex(), d.Name)
	writeJSON(w, http.StatusCreated, DepartmentResponse{
		Success:    true,
		Message:    "Department created successfully",
		Department: &d,
	})
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeDepartment(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	current, err := h.Departments.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Department not found")
		return
	case err != nil:
		h.internalError(w, "load department failed", err, "Failed to update department")
		return
	}
	in.KeepStoredContact(*current)

	if !h.departmentUnique(ctx, w, in, id) {
		return
	}

	d := in.Department()
	d.ID = oid
	err = h.Departments.Update(ctx, &d)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Department not found")
		return
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Department name already exists")
		return
	case err != nil:
		h.internalError(w, "update department failed", err, "Failed to update department")
		return
	}

	h.record(r, "department.update", "department", id, d.Name)
	writeJSON(w, http.StatusOK, DepartmentResponse{
		Success:    true,
		Message:    "Department updated successfully",
		Department: &d,
	})
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := h.Departments.Delete(ctx, id)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Department not found")
		return
	case err != nil:
		h.internalError(w, "delete department failed", err, "Failed to delete department")
		return
	}

	h.record(r, "department.delete", "department", id, "")
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Department deleted successfully"})
}

func (h *Handler) decodeDepartment(w http.ResponseWriter, r *http.Request) (validation.DepartmentInput, bool) {
	var in validation.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return in, false
	}
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		h.writeValidation(w, err)
		return in, false
	}
	return in, true
}

// departmentUnique rejects a name or email already used by another department.
func (h *Handler) departmentUnique(ctx context.Context, w http.ResponseWriter, in validation.DepartmentInput, excludeID string) bool {
	taken, err := h.Departments.NameTaken(ctx, in.Name, excludeID)
	if err != nil {
		h.internalError(w, "department name check failed", err, "Failed to validate department")
		return false
	}
	if taken {
		writeError(w, http.StatusBadRequest, "Department name already exists")
		return false
	}

	if in.Email == "" {
		return true
	}
	taken, err = h.Departments.EmailTaken(ctx, in.Email, excludeID)
	if err != nil {
		h.internalError(w, "department email check failed", err, "Failed to validate department")
		return false
	}
	if taken {
		writeError(w, http.StatusBadRequest, "Department email already exists")
		return false
	}
	return true
}
