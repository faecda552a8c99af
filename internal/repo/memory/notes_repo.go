package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/notehub/internal/domain/note"
)

type NotesRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]note.Note
	now    func() time.Time
}

func NewNotesRepo() *NotesRepo {
	return &NotesRepo{
		items: make(map[int64]note.Note),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *NotesRepo) Create(_ context.Context, userID int64, req note.CreateNoteRequest) (note.Note, error) {
	n := note.NewFromCreateRequest(userID, req, r.now())

	r.mu.Lock()
	r.nextID++
	n.ID = r.nextID
	r.items[n.ID] = n
	r.mu.Unlock()

	return clone(n), nil
}

func (r *NotesRepo) List(ctx context.Context, userID int64) ([]note.Note, error) {
	return r.Search(ctx, userID, note.SearchFilter{})
}

func (r *NotesRepo) Search(_ context.Context, userID int64, filter note.SearchFilter) ([]note.Note, error) {
	keyword := strings.ToLower(filter.Keyword)

	r.mu.RLock()
	out := make([]note.Note, 0)
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		if filter.Tag != "" && !slices.Contains(n.Tags, filter.Tag) {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(n.Title), keyword) &&
			!strings.Contains(strings.ToLower(n.Content), keyword) {
			continue
		}
		out = append(out, clone(n))
	}
	r.mu.RUnlock()

	// newest first, id breaks ties
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (r *NotesRepo) GetByID(_ context.Context, userID, id int64) (note.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return note.Note{}, note.ErrNotFound
	}
	return clone(n), nil
}

func (r *NotesRepo) Update(_ context.Context, userID, id int64, patch note.Patch) (note.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return note.Note{}, note.ErrNotFound
	}

	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Tags != nil {
		n.Tags = note.NormalizeTags(*patch.Tags)
	}

	now := r.now()
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(time.Microsecond)
	}
	n.UpdatedAt = now

	r.items[id] = n
	return clone(n), nil
}

func (r *NotesRepo) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return note.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *NotesRepo) deleteOwnedBy(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.items {
		if n.UserID == userID {
			delete(r.items, id)
		}
	}
}

// callers must not share the stored tag slice
func clone(n note.Note) note.Note {
	n.Tags = note.NormalizeTags(n.Tags)
	return n
}
