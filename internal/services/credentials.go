package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

// LoginKind selects which accounts a login endpoint accepts.
type LoginKind string

const (
	LoginAdmin     LoginKind = "admin"
	LoginExecutive LoginKind = "executive"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
)

// CheckCredentials resolves username for the given login kind and verifies
// the password.
//
// Admin logins accept active admin and manager accounts and fall back to the
// legacy adminC collection. Executive logins accept executives only and
// reject inactive accounts explicitly.
func CheckCredentials(ctx context.Context, users store.UserStore, kind LoginKind, username, password string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)

	switch kind {
	case LoginExecutive:
		user, err = users.FindByUsername(ctx, username, models.UserTypeExecutive)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("find executive: %w", err)
		}
		if !user.Active {
			return nil, ErrInactiveAccount
		}
	default:
		user, err = users.FindByUsername(ctx, username, models.UserTypeAdmin, models.UserTypeManager)
		if err == nil && !user.Active {
			err = store.ErrNotFound
		}
		if errors.Is(err, store.ErrNotFound) {
			user, err = users.FindLegacyAdmin(ctx, username)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("find admin: %w", err)
		}
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
