package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/domain/note"
	"github.com/geocoder89/notehub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotesUpdatedAtStrictlyIncreasesWithFrozenClock(t *testing.T) {
	repo := NewNotesRepo()
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	ctx := context.Background()
	n, err := repo.Create(ctx, 1, note.CreateNoteRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.True(t, n.CreatedAt.Equal(n.UpdatedAt))

	prev := n.UpdatedAt
	for i := 0; i < 3; i++ {
		title := "t2"
		updated, err := repo.Update(ctx, 1, n.ID, note.Patch{Title: &title})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(prev))
		assert.True(t, updated.CreatedAt.Equal(n.CreatedAt))
		prev = updated.UpdatedAt
	}
}

func TestNotesAreOwnerScoped(t *testing.T) {
	repo := NewNotesRepo()
	ctx := context.Background()

	n, err := repo.Create(ctx, 1, note.CreateNoteRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, 2, n.ID)
	assert.ErrorIs(t, err, note.ErrNotFound)

	title := "x"
	_, err = repo.Update(ctx, 2, n.ID, note.Patch{Title: &title})
	assert.ErrorIs(t, err, note.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 2, n.ID), note.ErrNotFound)

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	got, err := repo.GetByID(ctx, 1, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestNotesSearch(t *testing.T) {
	repo := NewNotesRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, note.CreateNoteRequest{Title: "Shopping List", Content: "milk", Tags: []string{"cat"}})
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, note.CreateNoteRequest{Title: "Ideas", Content: "ship it", Tags: []string{"category"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter note.SearchFilter
		want   []string
	}{
		{name: "keyword case-insensitive", filter: note.SearchFilter{Keyword: "shopping"}, want: []string{"Shopping List"}},
		{name: "keyword in content", filter: note.SearchFilter{Keyword: "SHIP"}, want: []string{"Ideas"}},
		{name: "exact tag", filter: note.SearchFilter{Tag: "cat"}, want: []string{"Shopping List"}},
		{name: "tag is case-sensitive", filter: note.SearchFilter{Tag: "Cat"}, want: []string{}},
		{name: "tag and keyword", filter: note.SearchFilter{Tag: "category", Keyword: "ideas"}, want: []string{"Ideas"}},
		{name: "no match", filter: note.SearchFilter{Tag: "cat", Keyword: "ideas"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, 1, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(got))
			for _, n := range got {
				titles = append(titles, n.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestNotesTagsStoredTrimmed(t *testing.T) {
	repo := NewNotesRepo()
	ctx := context.Background()

	n, err := repo.Create(ctx, 1, note.CreateNoteRequest{Title: "Pets", Content: "c", Tags: []string{" cat", "dog ", " "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, n.Tags)

	got, err := repo.Search(ctx, 1, note.SearchFilter{Tag: "cat"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	tags := []string{"  bird"}
	replaced := note.ReplaceNoteRequest{Title: "Pets", Content: "c", Tags: &tags}
	_, err = repo.Update(ctx, 1, n.ID, replaced.ToPatch())
	require.NoError(t, err)

	got, err = repo.Search(ctx, 1, note.SearchFilter{Tag: "bird"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"bird"}, got[0].Tags)
}

func TestNotesReturnCopies(t *testing.T) {
	repo := NewNotesRepo()
	ctx := context.Background()

	n, err := repo.Create(ctx, 1, note.CreateNoteRequest{Title: "t", Content: "c", Tags: []string{"a"}})
	require.NoError(t, err)

	n.Tags[0] = "mutated"

	got, err := repo.GetByID(ctx, 1, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestUsersUniquenessAndLookup(t *testing.T) {
	notes := NewNotesRepo()
	users := NewUsersRepo(notes)
	ctx := context.Background()

	u, err := users.Create(ctx, "ada", "ada@example.com", "hash")
	require.NoError(t, err)

	_, err = users.Create(ctx, "ada", "other@example.com", "hash")
	assert.ErrorIs(t, err, user.ErrUsernameTaken)

	_, err = users.Create(ctx, "other", "ada@example.com", "hash")
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	byName, err := users.GetByIdentifier(ctx, "ada")
	require.NoError(t, err)
	byEmail, err := users.GetByIdentifier(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = users.GetByIdentifier(ctx, "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)

	require.NoError(t, users.SetPasswordHash(ctx, u.ID, "new-hash"))
	byName, err = users.GetByIdentifier(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byName.PasswordHash)
	assert.ErrorIs(t, users.SetPasswordHash(ctx, 999, "x"), user.ErrNotFound)
}

func TestDeletingUserCascadesToNotes(t *testing.T) {
	notes := NewNotesRepo()
	users := NewUsersRepo(notes)
	ctx := context.Background()

	u, err := users.Create(ctx, "ada", "ada@example.com", "hash")
	require.NoError(t, err)
	_, err = notes.Create(ctx, u.ID, note.CreateNoteRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, u.ID))

	list, err := notes.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, users.Delete(ctx, u.ID), user.ErrNotFound)
}

func TestRefreshTokensRotate(t *testing.T) {
	repo := NewRefreshTokensRepo()
	ctx := context.Background()

	row := auth.RefreshTokenRow{ID: "a", UserID: 1, TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, row))

	next, err := repo.Rotate(ctx, "a", func(current auth.RefreshTokenRow) (auth.RefreshTokenRow, error) {
		assert.True(t, current.Active(time.Now()))
		return auth.RefreshTokenRow{ID: "b", UserID: 1, TokenHash: "h2", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b", next.ID)

	// the old row is revoked and points at its replacement
	_, err = repo.Rotate(ctx, "a", func(current auth.RefreshTokenRow) (auth.RefreshTokenRow, error) {
		assert.False(t, current.Active(time.Now()))
		require.NotNil(t, current.ReplacedBy)
		assert.Equal(t, "b", *current.ReplacedBy)
		return auth.RefreshTokenRow{}, errors.New("reused")
	})
	assert.EqualError(t, err, "reused")

	_, err = repo.Rotate(ctx, "missing", nil)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	require.NoError(t, repo.Revoke(ctx, "b"))
	require.NoError(t, repo.Revoke(ctx, "b"))
	require.NoError(t, repo.Revoke(ctx, "missing"))
}

func TestRefreshTokensPurgeExpired(t *testing.T) {
	repo := NewRefreshTokensRepo()
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-2 * time.Hour)

	require.NoError(t, repo.Create(ctx, auth.RefreshTokenRow{ID: "live", UserID: 1, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, auth.RefreshTokenRow{ID: "expired", UserID: 1, ExpiresAt: old}))
	require.NoError(t, repo.Create(ctx, auth.RefreshTokenRow{ID: "revoked", UserID: 1, ExpiresAt: now.Add(time.Hour), RevokedAt: &old}))

	n, err := repo.PurgeExpired(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// purging again finds nothing
	n, err = repo.PurgeExpired(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Revoke(ctx, "live"))
}
