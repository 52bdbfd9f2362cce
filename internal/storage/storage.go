package storage

import (
	"context"
	"errors"

	"github.com/xaenox/nutrobo/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrThreadOwned  = errors.New("thread belongs to another user")
)

type Storage interface {
	UserStorage
	ThreadStorage
	Close() error
}

type UserStorage interface {
	// GetUser returns ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// PutUser upserts the profile and registers listed threads the user
	// does not own yet.
	PutUser(ctx context.Context, user *models.User) error
}

type ThreadStorage interface {
	// AddThread registers a thread to a user, creating the user record when
	// needed. A thread owned by someone else is never reassigned.
	AddThread(ctx context.Context, userID, threadID string) error
}
