package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

var _ auth.RefreshTokenStore = (*RefreshTokensRepo)(nil)

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, prom: prom}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row auth.RefreshTokenRow) error {
	return r.prom.ObserveDB("refresh_tokens.create", func() error {
		return insertRefreshToken(ctx, r.pool, row)
	})
}

// Rotate locks the current row so concurrent refreshes with the same token
// cannot both succeed, then revokes it and inserts its replacement.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, id string, fn auth.RotateFunc) (auth.RefreshTokenRow, error) {
	var next auth.RefreshTokenRow

	err := r.prom.ObserveDB("refresh_tokens.rotate", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			current, err := getRefreshTokenForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}

			next, err = fn(current)
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				UPDATE refresh_tokens
				SET revoked_at = NOW(), replaced_by = $2
				WHERE id = $1
			`, current.ID, next.ID)
			if err != nil {
				return err
			}

			return insertRefreshToken(ctx, tx, next)
		})
	})

	if err != nil {
		return auth.RefreshTokenRow{}, err
	}
	return next, nil
}

// Revoke is idempotent; unknown ids are not an error.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.prom.ObserveDB("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, db execer, row auth.RefreshTokenRow) error {
	_, err := db.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

func getRefreshTokenForUpdate(ctx context.Context, tx pgx.Tx, id string) (auth.RefreshTokenRow, error) {
	var row auth.RefreshTokenRow

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.RefreshTokenRow{}, auth.ErrRefreshTokenNotFound
		}

		return auth.RefreshTokenRow{}, err
	}

	return row, nil
}

// PurgeExpired deletes rows that expired or were revoked before the cutoff.
func (r *RefreshTokensRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64

	err := r.prom.ObserveDB("refresh_tokens.purge", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM refresh_tokens
			WHERE expires_at < $1
			   OR (revoked_at IS NOT NULL AND revoked_at < $1)
		`, before)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}
