// Package audit records who changed what through the admin API.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrUnavailable is returned by recorders that cannot be queried.
var ErrUnavailable = errors.New("audit trail is not available")

type Event struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// ClampLimit applies the default and the upper bound to a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (e *Event) fill() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// PostgresRecorder writes to the audit_events table.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, e Event) error {
	e.fill()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, created_at, actor, action, entity, entity_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.CreatedAt, e.Actor, e.Action, e.Entity, e.EntityID, e.Details, e.IPAddress)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, actor, action, entity, entity_id, COALESCE(details, ''), COALESCE(ip_address, '')
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &e.Details, &e.IPAddress); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LogRecorder writes events to the service log. It is used when no
// Postgres database is configured, so Recent has nothing to return.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, e Event) error {
	e.fill()
	r.log.Info("audit",
		zap.String("audit_id", e.ID.String()),
		zap.String("actor", e.Actor),
		zap.String("action", e.Action),
		zap.String("entity", e.Entity),
		zap.String("entity_id", e.EntityID),
		zap.String("details", e.Details),
		zap.String("ip", e.IPAddress),
	)
	return nil
}

func (r *LogRecorder) Recent(context.Context, int) ([]Event, error) {
	return nil, ErrUnavailable
}
