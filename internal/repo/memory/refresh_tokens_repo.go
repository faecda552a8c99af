package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
)

type RefreshTokensRepo struct {
	mu    sync.Mutex
	items map[string]auth.RefreshTokenRow
}

var _ auth.RefreshTokenStore = (*RefreshTokensRepo)(nil)

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{items: make(map[string]auth.RefreshTokenRow)}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row auth.RefreshTokenRow) error {
	r.mu.Lock()
	r.items[row.ID] = row
	r.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, id string, fn auth.RotateFunc) (auth.RefreshTokenRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return auth.RefreshTokenRow{}, auth.ErrRefreshTokenNotFound
	}

	next, err := fn(current)
	if err != nil {
		return auth.RefreshTokenRow{}, err
	}

	now := time.Now().UTC()
	current.RevokedAt = &now
	current.ReplacedBy = &next.ID
	r.items[current.ID] = current
	r.items[next.ID] = next

	return next, nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	row.RevokedAt = &now
	r.items[id] = row
	return nil
}

func (r *RefreshTokensRepo) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.items {
		if row.ExpiresAt.Before(before) || (row.RevokedAt != nil && row.RevokedAt.Before(before)) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}
