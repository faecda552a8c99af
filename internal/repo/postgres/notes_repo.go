package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/notehub/internal/domain/note"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const noteColumns = `id, user_id, title, content, tags, created_at, updated_at`

type NotesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotesRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotesRepo {
	return &NotesRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *NotesRepo) Create(ctx context.Context, userID int64, req note.CreateNoteRequest) (note.Note, error) {
	// postgres keeps microseconds, so truncate to hand back exactly what is stored
	n := note.NewFromCreateRequest(userID, req, time.Now().UTC().Truncate(time.Microsecond))

	err := r.prom.ObserveDB("notes.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO notes (user_id, title, content, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			n.UserID, n.Title, n.Content, n.Tags, n.CreatedAt, n.UpdatedAt,
		).Scan(&n.ID)
	})

	if err != nil {
		return note.Note{}, err
	}

	return n, nil
}

func (r *NotesRepo) List(ctx context.Context, userID int64) ([]note.Note, error) {
	return r.Search(ctx, userID, note.SearchFilter{})
}

// Search returns the owner's notes matching every non-empty filter field,
// newest first. Tag is exact array membership; keyword is a case-insensitive
// substring of title or content.
func (r *NotesRepo) Search(ctx context.Context, userID int64, filter note.SearchFilter) ([]note.Note, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	argsPosition := 2

	if filter.Tag != "" {
		conds = append(conds, fmt.Sprintf("tags @> ARRAY[$%d]::text[]", argsPosition))
		args = append(args, filter.Tag)
		argsPosition++
	}

	if filter.Keyword != "" {
		conds = append(conds, fmt.Sprintf(`(title ILIKE $%[1]d ESCAPE '\' OR content ILIKE $%[1]d ESCAPE '\')`, argsPosition))
		args = append(args, "%"+escapeLike(filter.Keyword)+"%")
	}

	query := `SELECT ` + noteColumns + ` FROM notes WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	op := "notes.list"
	if !filter.IsEmpty() {
		op = "notes.search"
	}

	output := make([]note.Note, 0)

	err := r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return err
			}
			output = append(output, n)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *NotesRepo) GetByID(ctx context.Context, userID, id int64) (note.Note, error) {
	var n note.Note

	err := r.prom.ObserveDB("notes.get", func() error {
		var err error
		n, err = scanNote(r.pool.QueryRow(ctx,
			`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`,
			id, userID,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return note.Note{}, note.ErrNotFound
		}
		return note.Note{}, err
	}

	return n, nil
}

// Update applies the non-nil patch fields. updated_at always moves forward,
// even when two updates land within the same clock tick.
func (r *NotesRepo) Update(ctx context.Context, userID, id int64, patch note.Patch) (note.Note, error) {
	var n note.Note

	err := r.prom.ObserveDB("notes.update", func() error {
		var err error
		n, err = scanNote(r.pool.QueryRow(
			ctx,
			`UPDATE notes
				SET title = COALESCE($3, title),
					content = COALESCE($4, content),
					tags = COALESCE($5::text[], tags),
					updated_at = GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')
			WHERE id = $1 AND user_id = $2
			RETURNING `+noteColumns,
			id,
			userID,
			patch.Title,
			patch.Content,
			patch.Tags,
		))
		return err
	})

	if err != nil {
		// no rows: either missing or owned by someone else
		if errors.Is(err, pgx.ErrNoRows) {
			return note.Note{}, note.ErrNotFound
		}
		return note.Note{}, err
	}

	return n, nil
}

func (r *NotesRepo) Delete(ctx context.Context, userID, id int64) error {
	var affected int64

	err := r.prom.ObserveDB("notes.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM notes WHERE id = $1 AND user_id = $2
		`, id, userID)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return note.ErrNotFound
	}

	return nil
}

func scanNote(row pgx.Row) (note.Note, error) {
	var n note.Note

	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return note.Note{}, err
	}

	n.Tags = note.NormalizeTags(n.Tags)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()

	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the keyword match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
