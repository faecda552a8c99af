package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	errs    []error
	calls   chan struct{}
}

func (f *fakePurger) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	f.cutoffs = append(f.cutoffs, before)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	f.mu.Unlock()

	if f.calls != nil {
		f.calls <- struct{}{}
	}
	if err != nil {
		return 0, err
	}
	return 3, nil
}

func TestSweepOnceUsesRetentionCutoff(t *testing.T) {
	p := &fakePurger{}
	w := New(Config{Retention: 24 * time.Hour}, p, nil)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	n, err := w.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), p.cutoffs[0])
}

type sweepRecorder struct {
	purged []int64
	errs   int
}

func (r *sweepRecorder) ObserveSweep(purged int64, err error) {
	if err != nil {
		r.errs++
		return
	}
	r.purged = append(r.purged, purged)
}

func TestSweepOnceReportsMetrics(t *testing.T) {
	rec := &sweepRecorder{}
	p := &fakePurger{errs: []error{errors.New("db down")}}
	w := New(Config{Metrics: rec}, p, nil)

	_, err := w.SweepOnce(context.Background())
	require.Error(t, err)
	_, err = w.SweepOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, []int64{3}, rec.purged)
}

func TestRunRetriesWithBackoff(t *testing.T) {
	p := &fakePurger{
		errs:  []error{errors.New("db down")},
		calls: make(chan struct{}, 4),
	}
	w := New(Config{Interval: time.Hour}, p, nil)

	var attempts []int
	w.backoff = func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// first sweep fails, the retry after the backoff succeeds
	<-p.calls
	<-p.calls
	assert.True(t, w.Ready())

	cancel()
	require.NoError(t, <-done)
	assert.False(t, w.Ready())
	assert.Equal(t, []int{0}, attempts)
}

func TestExponentialBackoffIsCapped(t *testing.T) {
	assert.GreaterOrEqual(t, ExponentialBackoff(0), 2*time.Second)
	assert.Less(t, ExponentialBackoff(0), 3*time.Second)
	assert.GreaterOrEqual(t, ExponentialBackoff(2), 8*time.Second)
	assert.LessOrEqual(t, ExponentialBackoff(50), 5*time.Minute+250*time.Millisecond)
}

func TestHealthHandler(t *testing.T) {
	w := New(Config{}, &fakePurger{}, nil)

	pingErr := errors.New("down")
	var failPing bool
	h := w.HealthHandler(func(context.Context) error {
		if failPing {
			return pingErr
		}
		return nil
	})

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))

	w.setReady(true)
	assert.Equal(t, http.StatusOK, get("/readyz"))

	failPing = true
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
}
