// Package store holds the persistence contracts of the credential subsystem:
// users, roles and refresh-token records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/huangang/taskmanager/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUserByID loads the user together with its role.
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type RoleStore interface {
	FindRoleByID(ctx context.Context, id uint) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
}

// RevokeFilter selects unrevoked refresh-token records. Empty fields match anything,
// but at least one field must be set.
type RevokeFilter struct {
	UserID  string
	TokenID string
}

type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// FindUnrevokedRefreshToken returns the record only if it belongs to userID and
	// is not revoked. Expiry is left to the caller.
	FindUnrevokedRefreshToken(ctx context.Context, userID, tokenID string) (*models.RefreshToken, error)
	// RotateRefreshToken revokes oldID and creates next as one unit. It returns
	// ErrNotFound when oldID was already revoked, so at most one caller wins.
	RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken, now time.Time) error
	RevokeRefreshTokens(ctx context.Context, filter RevokeFilter, now time.Time) (int64, error)
	// PurgeRefreshTokens deletes records expired before expiredBefore and records
	// revoked before revokedBefore.
	PurgeRefreshTokens(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error)
}

// CredentialStore is everything the session manager persists.
type CredentialStore interface {
	UserStore
	RoleStore
	RefreshTokenStore
}

var errEmptyFilter = errors.New("revoke filter must select a user or a token")

func (f RevokeFilter) Validate() error {
	if f.UserID == "" && f.TokenID == "" {
		return errEmptyFilter
	}
	return nil
}
