package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/handlers"
	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/models"
)

// Options controls the router-wide middleware.
type Options struct {
	AllowedOrigins []string
	Production     bool
	TrustProxy     bool
	// LoginAttempts backs the per-IP login limit; nil disables it
	LoginAttempts middleware.AttemptCounter
}

// NewRouter builds the complete HTTP API.
func NewRouter(h *handlers.Handler, auth *middleware.Auth, opts Options, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit
	if opts.Production {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Everything below resolves session tokens
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		backOffice := auth.RequireRoles(models.UserTypeAdmin, models.UserTypeManager)
		adminOnly := auth.RequireRoles(models.UserTypeAdmin)
		anyRole := auth.RequireRoles()

		// Login routes
		r.Group(func(r chi.Router) {
			if opts.LoginAttempts != nil {
				r.Use(middleware.LoginAttemptLimit(opts.LoginAttempts, log))
			}
			if opts.Production {
				r.Use(middleware.LoginRateLimit())
			}
			r.Post("/api/admin/login", h.AdminLogin)
			r.Post("/api/executive/login", h.ExecutiveLogin)
		})

		r.Post("/api/auth/logout", h.Logout)
		r.Get("/api/auth/me", h.Me)

		// Feedback routes
		r.With(anyRole).Post("/api/feedback", h.CreateFeedback)
		r.Group(func(r chi.Router) {
			r.Use(backOffice)
			r.Get("/api/feedback", h.ListFeedback)
			r.Put("/api/feedback", h.UpdateFeedback)
			r.Get("/api/feedback/{id}", h.GetFeedback)
		})

		// Department routes
		r.With(anyRole).Get("/api/departments", h.ListDepartments)
		r.Group(func(r chi.Router) {
			r.Use(backOffice)
			r.Post("/api/departments", h.CreateDepartment)
			r.Put("/api/departments/{id}", h.UpdateDepartment)
			r.Delete("/api/departments/{id}", h.DeleteDepartment)
		})

		// User management routes
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/api/users", h.ListUsers)
			r.Post("/api/users", h.CreateUser)
			r.Put("/api/users/{id}", h.UpdateUser)
			r.Patch("/api/users/{id}/active", h.SetUserActive)
			r.Delete("/api/users/{id}", h.DeleteUser)
		})

		// Reporting routes
		r.Group(func(r chi.Router) {
			r.Use(backOffice)
			r.Get("/api/admin/export/pdf", h.ExportPDF)
			r.Get("/api/admin/export/xlsx", h.ExportExcel)
			r.Get("/api/admin/export/preview", h.ExportPreview)
			r.Post("/api/admin/export/archive", h.ArchiveReport)
			r.Get("/api/admin/stats", h.Stats)
			r.Get("/api/admin/audit", h.ListAudit)
		})

		// WebSocket feed for the dashboard
		r.With(backOffice).Get("/ws/feedback", h.FeedbackEvents)
	})

	return r
}
