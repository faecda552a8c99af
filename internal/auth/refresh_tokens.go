package auth

import (
	"context"
	"errors"
	"time"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRow struct {
	ID         string
	UserID     int64
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

func (r RefreshTokenRow) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// RotateFunc inspects the locked current row and returns its replacement.
// Returning an error aborts the rotation and leaves the row untouched.
type RotateFunc func(current RefreshTokenRow) (RefreshTokenRow, error)

// RefreshTokenStore persists hashed refresh tokens keyed by their jti.
type RefreshTokenStore interface {
	Create(ctx context.Context, row RefreshTokenRow) error
	Rotate(ctx context.Context, id string, fn RotateFunc) (RefreshTokenRow, error)
	Revoke(ctx context.Context, id string) error
}
