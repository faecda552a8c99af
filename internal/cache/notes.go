package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/notehub/internal/domain/note"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/geocoder89/notehub/internal/utils"
	"github.com/redis/go-redis/v9"
)

type NotesRepository interface {
	Create(ctx context.Context, userID int64, req note.CreateNoteRequest) (note.Note, error)
	List(ctx context.Context, userID int64) ([]note.Note, error)
	Search(ctx context.Context, userID int64, filter note.SearchFilter) ([]note.Note, error)
	GetByID(ctx context.Context, userID, id int64) (note.Note, error)
	Update(ctx context.Context, userID, id int64, patch note.Patch) (note.Note, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Notes caches list and search reads per user in Redis. Every write bumps the
// user's generation counter, so stale entries are never read again and simply
// expire. A nil client turns the decorator into a pass-through.
//
// If the generation cannot be moved after a write, the generation is reset to
// the current time in nanoseconds, a value no earlier entry can carry. If that
// also fails, this process reads the user's notes uncached for one TTL.
type Notes struct {
	inner NotesRepository
	rdb   *redis.Client
	ttl   time.Duration
	prom  *observability.Prom
	now   func() time.Time

	bypassMu sync.Mutex
	bypass   map[int64]time.Time
}

func NewNotes(inner NotesRepository, rdb *redis.Client, ttl time.Duration, prom *observability.Prom) *Notes {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Notes{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		prom:   prom,
		now:    time.Now,
		bypass: make(map[int64]time.Time),
	}
}

func (c *Notes) Create(ctx context.Context, userID int64, req note.CreateNoteRequest) (note.Note, error) {
	n, err := c.inner.Create(ctx, userID, req)
	if err != nil {
		return note.Note{}, err
	}
	c.invalidate(ctx, userID)
	return n, nil
}

func (c *Notes) List(ctx context.Context, userID int64) ([]note.Note, error) {
	return c.read(ctx, userID, "list", note.SearchFilter{}, func() ([]note.Note, error) {
		return c.inner.List(ctx, userID)
	})
}

func (c *Notes) Search(ctx context.Context, userID int64, filter note.SearchFilter) ([]note.Note, error) {
	return c.read(ctx, userID, "search", filter, func() ([]note.Note, error) {
		return c.inner.Search(ctx, userID, filter)
	})
}

func (c *Notes) GetByID(ctx context.Context, userID, id int64) (note.Note, error) {
	return c.inner.GetByID(ctx, userID, id)
}

func (c *Notes) Update(ctx context.Context, userID, id int64, patch note.Patch) (note.Note, error) {
	n, err := c.inner.Update(ctx, userID, id, patch)
	if err != nil {
		return note.Note{}, err
	}
	c.invalidate(ctx, userID)
	return n, nil
}

func (c *Notes) Delete(ctx context.Context, userID, id int64) error {
	if err := c.inner.Delete(ctx, userID, id); err != nil {
		return err
	}
	c.invalidate(ctx, userID)
	return nil
}

func (c *Notes) read(ctx context.Context, userID int64, kind string, filter note.SearchFilter, load func() ([]note.Note, error)) ([]note.Note, error) {
	if c.rdb == nil {
		return load()
	}
	if c.bypassed(userID) {
		c.prom.ObserveCache(kind, "bypass")
		return load()
	}

	gen, err := c.generation(ctx, userID)
	if err != nil {
		c.prom.ObserveCache(kind, "error")
		slog.WarnContext(ctx, "notes cache unavailable", "user_id", userID, "err", err)
		return load()
	}

	key := utils.BuildNotesListCacheKey(userID, gen, filter.Tag, filter.Keyword)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []note.Note
		if err := json.Unmarshal(b, &out); err == nil {
			c.prom.ObserveCache(kind, "hit")
			// user_id is not serialised, every entry is scoped to its owner
			for i := range out {
				out[i].UserID = userID
				out[i].Tags = note.NormalizeTags(out[i].Tags)
			}
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	c.prom.ObserveCache(kind, "miss")

	out, err := load()
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "notes cache write failed", "user_id", userID, "err", err)
		}
	}

	return out, nil
}

func (c *Notes) generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, utils.BuildNotesGenerationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Notes) invalidate(ctx context.Context, userID int64) {
	if c.rdb == nil {
		return
	}

	genKey := utils.BuildNotesGenerationKey(userID)
	err := c.rdb.Incr(ctx, genKey).Err()
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "notes cache invalidation failed", "user_id", userID, "err", err)

	if err := c.rdb.Set(ctx, genKey, c.now().UnixNano(), 0).Err(); err == nil {
		return
	}

	c.bypassMu.Lock()
	c.bypass[userID] = c.now().Add(c.ttl)
	c.bypassMu.Unlock()
}

func (c *Notes) bypassed(userID int64) bool {
	c.bypassMu.Lock()
	defer c.bypassMu.Unlock()

	until, ok := c.bypass[userID]
	if !ok {
		return false
	}
	if c.now().After(until) {
		delete(c.bypass, userID)
		return false
	}
	return true
}
