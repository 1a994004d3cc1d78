package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and creates the audit tables.
func ConnectPostgres(postgresURI string, log *zap.Logger) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	PostgresDB = db
	log.Info("connected to PostgreSQL")

	if err := InitPostgresTables(ctx, db); err != nil {
		return fmt.Errorf("init postgres tables: %w", err)
	}
	log.Info("PostgreSQL tables initialized")
	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			actor VARCHAR(50) NOT NULL,
			action VARCHAR(64) NOT NULL,
			entity VARCHAR(32) NOT NULL,
			entity_id VARCHAR(64) NOT NULL DEFAULT '',
			details TEXT,
			ip_address VARCHAR(255)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
