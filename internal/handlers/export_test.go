package handlers_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/cgportal/feedback-backend/internal/audit"
	"github.com/cgportal/feedback-backend/internal/handlers"
	"github.com/cgportal/feedback-backend/internal/models"
)

func seedReportData(t *testing.T, f *fixture) {
	t.Helper()
	day := 24 * time.Hour
	f.addFeedback(t, models.Feedback{CallID: "H-1", Department: "Health", Satisfaction: models.SatisfactionSatisfied, SubmittedAt: fixedNow.Add(-time.Hour), SubmittedBy: "exec"})
	f.addFeedback(t, models.Feedback{CallID: "H-2", Department: "Health", Satisfaction: models.SatisfactionCallNotPicked, SubmittedAt: fixedNow.Add(-3 * day), SubmittedBy: "exec"})
	f.addFeedback(t, models.Feedback{CallID: "T-1", Department: "Tax", Satisfaction: models.SatisfactionNotSatisfied, SubmittedAt: fixedNow.Add(-20 * day), SubmittedBy: "exec"})
	f.addFeedback(t, models.Feedback{CallID: "T-2", Department: "Tax", Satisfaction: models.SatisfactionPersonNotExist, SubmittedAt: fixedNow.Add(-90 * day), SubmittedBy: "exec"})
}

func TestExportPreview(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)
	seedReportData(t, f)

	tests := map[string]struct {
		query string
		total int
	}{
		"everything":         {"", 4},
		"department":         {"?department=Health", 2},
		"other issues":       {"?satisfaction=other-issues", 2},
		"specific outcome":   {"?satisfaction=not-satisfied", 1},
		"today":              {"?dateRange=today", 1},
		"last 7 days":        {"?dateRange=last7days", 2},
		"last 30 days":       {"?dateRange=last30days", 3},
		"custom":             {"?dateRange=custom&startDate=2024-05-20&endDate=2024-06-12", 2},
		"combined":           {"?department=Tax&satisfaction=other-issues&dateRange=last6months", 1},
		"unknown range":      {"?dateRange=someday", 4},
		"health and satisfy": {"?department=Health&satisfaction=satisfied", 1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/admin/export/preview"+tc.query, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[handlers.PreviewResponse](t, rec)
			assert.Equal(t, tc.total, resp.Total)
			assert.Len(t, resp.Feedbacks, tc.total)
		})
	}

	rec := f.do(t, http.MethodGet, "/api/admin/export/preview?satisfaction=happy", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/export/preview?dateRange=custom&startDate=2024-06-10&endDate=2024-06-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "startDate is after endDate")
}

func TestExportPDF(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)
	seedReportData(t, f)

	rec := f.do(t, http.MethodGet, "/api/admin/export/pdf?department=Health&dateRange=last7days&title=Weekly", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="feedback_report_Health_last7days_2024-06-15.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, f.audit.actions(), "export.pdf")
}

func TestExportExcel(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)
	seedReportData(t, f)

	rec := f.do(t, http.MethodGet, "/api/admin/export/xlsx?satisfaction=other-issues", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `_alltime_other-issues_2024-06-15.xlsx"`))

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Feedback Data")
	require.NoError(t, err)
	assert.Len(t, rows, 3) // header plus two records
}

func TestArchiveReport(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)
	seedReportData(t, f)

	rec := f.do(t, http.MethodPost, "/api/admin/export/archive", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	archive := &fakeArchive{stored: map[string][]byte{}}
	f.handler.Archive = archive
	rec = f.do(t, http.MethodPost, "/api/admin/export/archive?dateRange=last30days", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[handlers.ArchiveResponse](t, rec)
	assert.Equal(t, "feedback_report_last30days_2024-06-15.pdf", resp.FileName)
	assert.Equal(t, "https://res.example.com/raw/upload/"+resp.FileName, resp.URL)
	assert.True(t, bytes.HasPrefix(archive.stored[resp.FileName], []byte("%PDF")))

	archive.err = errBoom
	rec = f.do(t, http.MethodPost, "/api/admin/export/archive", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)
	seedReportData(t, f)

	rec := f.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[handlers.StatsResponse](t, rec).Stats
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Satisfied)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 25, stats.SatisfactionRate)
}

func TestListAudit(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)

	rec := f.do(t, http.MethodPost, "/api/departments", token, map[string]any{"name": "Tax", "description": "Tax department"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/audit?limit=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[handlers.AuditResponse](t, rec).Events
	require.NotEmpty(t, events)
	assert.Equal(t, "department.create", events[0].Action)
	assert.Equal(t, "admin", events[0].Actor)

	f.handler.Audit = audit.NewLogRecorder(zaptest.NewLogger(t))
	rec = f.do(t, http.MethodGet, "/api/admin/audit", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
