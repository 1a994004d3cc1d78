package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/export"
	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// rendering large reports takes longer than a plain query
	exportTimeout = 30 * time.Second
)

type PreviewResponse struct {
	Success   bool              `json:"success"`
	Filters   export.Filters    `json:"filters"`
	Stats     export.Stats      `json:"stats"`
	Total     int               `json:"total"`
	Feedbacks []models.Feedback `json:"feedbacks"`
}

type StatsResponse struct {
	Success bool         `json:"success"`
	Stats   export.Stats `json:"stats"`
}

type ArchiveResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

func filtersFromQuery(r *http.Request) export.Filters {
	q := r.URL.Query()
	return export.Filters{
		Department:         q.Get("department"),
		SatisfactionOption: strings.ToLower(strings.TrimSpace(q.Get("satisfaction"))),
		DateRange:          strings.ToLower(strings.TrimSpace(q.Get("dateRange"))),
		StartDate:          q.Get("startDate"),
		EndDate:            q.Get("endDate"),
	}.Normalize()
}

func validSatisfactionOption(option string) bool {
	switch option {
	case export.OptionAll, export.OptionOtherIssues:
		return true
	}
	return models.Satisfaction(option).Valid()
}

// buildReport loads feedback for the request's filters and tabulates it.
// It writes the error response itself and returns nil on failure.
func (h *Handler) buildReport(ctx context.Context, w http.ResponseWriter, r *http.Request) *export.Report {
	filters := filtersFromQuery(r)
	if !validSatisfactionOption(filters.SatisfactionOption) {
		writeError(w, http.StatusBadRequest, "Invalid satisfaction filter: "+filters.SatisfactionOption)
		return nil
	}

	feedbacks, err := h.Feedback.List(ctx, store.FeedbackQuery{Department: filters.Department})
	if err != nil {
		h.internalError(w, "load feedback for export failed", err, "Failed to generate report")
		return nil
	}

	report, err := export.NewReport(strings.TrimSpace(r.URL.Query().Get("title")), feedbacks, filters, h.now(), h.location())
	if errors.Is(err, export.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	if err != nil {
		h.internalError(w, "build report failed", err, "Failed to generate report")
		return nil
	}
	return report
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.exportFile(w, r, "pdf", contentTypePDF, export.WritePDF)
}

func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	h.exportFile(w, r, "xlsx", contentTypeXLSX, export.WriteExcel)
}

func (h *Handler) exportFile(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(io.Writer, *export.Report) error) {
	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	report := h.buildReport(ctx, w, r)
	if report == nil {
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, report); err != nil {
		h.internalError(w, "render report failed", err, "Failed to generate report")
		return
	}

	fileName := export.FileName(report.Filters, ext, h.now())
	h.record(r, "export."+ext, "report", fileName, strconv.Itoa(report.Stats.Total)+" records")

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("write report failed", zap.String("file", fileName), zap.Error(err))
	}
}

// ExportPreview returns the filtered records and their stats as JSON.
func (h *Handler) ExportPreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report := h.buildReport(ctx, w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Success:   true,
		Filters:   report.Filters,
		Stats:     report.Stats,
		Total:     report.Stats.Total,
		Feedbacks: report.Feedbacks,
	})
}

// ArchiveReport renders the PDF report and uploads it to the report archive.
func (h *Handler) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, http.StatusServiceUnavailable, "Report archive is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	report := h.buildReport(ctx, w, r)
	if report == nil {
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, report); err != nil {
		h.internalError(w, "render report failed", err, "Failed to generate report")
		return
	}

	fileName := export.FileName(report.Filters, "pdf", h.now())
	url, err := h.Archive.Store(ctx, fileName, buf.Bytes())
	if err != nil {
		h.Log.Error("archive report failed", zap.String("file", fileName), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to archive report")
		return
	}

	h.record(r, "export.archive", "report", fileName, url)
	writeJSON(w, http.StatusCreated, ArchiveResponse{Success: true, URL: url, FileName: fileName})
}

// Stats returns dashboard counts over all feedback.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	feedbacks, err := h.Feedback.List(ctx, store.FeedbackQuery{})
	if err != nil {
		h.internalError(w, "load feedback for stats failed", err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: export.Tabulate(feedbacks)})
}
