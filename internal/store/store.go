// Package store defines the persistence contracts the HTTP layer depends on.
package store

import (
	"context"
	"errors"

	"github.com/cgportal/feedback-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrInvalidID = errors.New("invalid id")
)

// FeedbackQuery narrows a feedback listing. Empty fields and "all" match everything.
type FeedbackQuery struct {
	Search     string
	Status     string
	Department string
}

type FeedbackStore interface {
	// List returns matching feedback sorted by submittedAt, newest first.
	List(ctx context.Context, q FeedbackQuery) ([]models.Feedback, error)
	Get(ctx context.Context, id string) (*models.Feedback, error)
	Create(ctx context.Context, f *models.Feedback) error
	UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error)
}

type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	// FindByUsername matches any of types (case-insensitively); no types means any type.
	FindByUsername(ctx context.Context, username string, types ...models.UserType) (*models.User, error)
	// FindLegacyAdmin looks in the read-only adminC collection.
	FindLegacyAdmin(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	Create(ctx context.Context, u *models.User) error
	// Update replaces username, type, active and, when non-empty, password,
	// then overwrites u with the stored document.
	Update(ctx context.Context, u *models.User) error
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	Delete(ctx context.Context, id string) error
	CountActiveAdmins(ctx context.Context) (int64, error)
	// Upsert creates or overwrites the user keyed by username.
	Upsert(ctx context.Context, u *models.User) (created bool, err error)
}

type DepartmentStore interface {
	List(ctx context.Context) ([]models.Department, error)
	Get(ctx context.Context, id string) (*models.Department, error)
	FindByName(ctx context.Context, name string) (*models.Department, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, d *models.Department) error
	Update(ctx context.Context, d *models.Department) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, d *models.Department) (created bool, err error)
}
