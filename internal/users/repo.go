package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
)

type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// ResolvePremium returns the user's premium flag, first clearing it in
	// storage when the expiry date is strictly before today. The read and the
	// conditional write happen as one operation.
	ResolvePremium(ctx context.Context, userID string, today time.Time) (bool, error)
	SetPremium(ctx context.Context, userID string, expiry time.Time) error
	Counts(ctx context.Context) (Counts, error)
}
