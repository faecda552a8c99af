package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/notehub/internal/domain/user"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, username, email, passwordHash string) (user.User, error) {
	u := user.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	err := r.prom.ObserveDB("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			username, email, passwordHash,
		).Scan(&u.ID, &u.CreatedAt)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			if strings.Contains(constraintName(err), "email") {
				return user.User{}, user.ErrEmailTaken
			}
			return user.User{}, user.ErrUsernameTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// GetByIdentifier matches the identifier against username first, then email.
func (r *UsersRepo) GetByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_identifier", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, username, email, password_hash, created_at
			FROM users
			WHERE username = $1 OR email = $1
			ORDER BY (username = $1) DESC
			LIMIT 1`,
			identifier,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// SetPasswordHash replaces the stored hash, used to upgrade bcrypt cost on login.
func (r *UsersRepo) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	var affected int64

	err := r.prom.ObserveDB("users.set_password_hash", func() error {
		tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Delete removes the user; notes and refresh tokens go with it (ON DELETE CASCADE).
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.prom.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
