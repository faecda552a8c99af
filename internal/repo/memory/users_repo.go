package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/notehub/internal/domain/user"
)

type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
	notes  *NotesRepo
}

// NewUsersRepo takes the notes repo so deleting a user cascades to its notes.
func NewUsersRepo(notes *NotesRepo) *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
		notes: notes,
	}
}

func (r *UsersRepo) Create(_ context.Context, username, email, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.items {
		if u.Username == username {
			return user.User{}, user.ErrUsernameTaken
		}
		if u.Email == email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	r.nextID++
	u := user.User{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByIdentifier(_ context.Context, identifier string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var byEmail *user.User
	for _, u := range r.items {
		if u.Username == identifier {
			return u, nil
		}
		if u.Email == identifier && byEmail == nil {
			found := u
			byEmail = &found
		}
	}

	if byEmail != nil {
		return *byEmail, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) SetPasswordHash(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.items[id] = u
	return nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	_, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()

	if !ok {
		return user.ErrNotFound
	}

	if r.notes != nil {
		r.notes.deleteOwnedBy(id)
	}
	return nil
}
