package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/audit"
	"github.com/cgportal/feedback-backend/internal/config"
	"github.com/cgportal/feedback-backend/internal/database"
	"github.com/cgportal/feedback-backend/internal/handlers"
	"github.com/cgportal/feedback-backend/internal/logger"
	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/routes"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store/mongostore"
)

const shutdownTimeout = 15 * time.Second

// app carries what every subcommand needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	// Load env
	_ = godotenv.Load()

	a := &app{}
	root := &cobra.Command{
		Use:           "cgportal",
		Short:         "Citizen call feedback portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			log, err := logger.New(a.cfg.IsProduction(), a.cfg.LogLevel)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.serve(cmd.Context())
			},
		},
		a.initDBCommand(),
		a.seedCommand(),
		a.verifyCredentialsCommand(),
		a.unblockIPCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) connectMongo() error {
	if err := database.Connect(a.cfg.MongoURI, a.cfg.MongoDatabase, a.log); err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	return nil
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	if err := a.connectMongo(); err != nil {
		return err
	}
	defer database.Disconnect()

	if err := database.EnsureIndexes(ctx, database.DB, log); err != nil {
		log.Warn("failed to ensure MongoDB indexes", zap.Error(err))
	}

	// Sessions, the department cache and live events all live in Redis
	if err := database.ConnectRedis(cfg.RedisURI, log); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	defer database.DisconnectRedis()

	var recorder audit.Recorder = audit.NewLogRecorder(log)
	if cfg.PostgresURI != "" {
		if err := database.ConnectPostgres(cfg.PostgresURI, log); err != nil {
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		defer database.DisconnectPostgres()
		recorder = audit.NewPostgresRecorder(database.PostgresDB)
	} else {
		log.Warn("POSTGRES_URI not set; audit events go to the log only")
	}

	var archive services.ReportArchive
	if cfg.CloudinaryEnabled() {
		ca, err := services.NewCloudinaryArchive(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.ReportFolder)
		if err != nil {
			log.Warn("cloudinary unavailable; report archiving disabled", zap.Error(err))
		} else {
			archive = ca
			log.Info("report archive enabled", zap.String("folder", cfg.ReportFolder))
		}
	}

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		log.Warn("unknown REPORT_TIMEZONE; using UTC", zap.String("timezone", cfg.ReportTimezone), zap.Error(err))
		loc = time.UTC
	}

	hub := services.NewHub(0)
	defer hub.Close()
	events := services.NewRedisEvents(database.RedisClient, hub, log)
	events.Start(ctx)

	sessions := services.NewRedisSessions(database.RedisClient, cfg.SessionTTL)
	h := &handlers.Handler{
		Feedback:    mongostore.NewFeedbackStore(database.DB),
		Users:       mongostore.NewUserStore(database.DB),
		Departments: services.NewCachedDepartments(mongostore.NewDepartmentStore(database.DB), services.NewRedisCache(database.RedisClient), services.DefaultCacheTTL, log),
		Sessions:    sessions,
		Events:      events,
		Hub:         hub,
		Audit:       recorder,
		Archive:     archive,
		Location:    loc,
		Log:         log,
		Now:         time.Now,
	}

	auth := middleware.NewAuth(sessions, cfg.RequireAuth, log)
	if !auth.Required() {
		log.Warn("REQUIRE_AUTH is off; role checks are not enforced")
	}
	router := routes.NewRouter(h, auth, routes.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		TrustProxy:     cfg.TrustProxy,
		LoginAttempts:  middleware.NewRedisAttempts(database.RedisClient),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("feedback backend listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.Strings("allowed_origins", cfg.AllowedOrigins))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
