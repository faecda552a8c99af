package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TokenPurger removes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// SweepObserver records the outcome of each purge. *observability.Prom
// satisfies it.
type SweepObserver interface {
	ObserveSweep(purged int64, err error)
}

type Config struct {
	// Interval between successful sweeps.
	Interval time.Duration
	// Retention keeps expired or revoked rows around for a while so reuse
	// of a rotated token is still detectable.
	Retention time.Duration
	// SweepTimeout bounds a single purge.
	SweepTimeout time.Duration
	// Metrics is optional.
	Metrics SweepObserver
}

type Worker struct {
	cfg     Config
	tokens  TokenPurger
	log     *slog.Logger
	now     func() time.Time
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, tokens TokenPurger, log *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg,
		tokens:  tokens,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		backoff: ExponentialBackoff,
	}
}

// Run sweeps immediately and then on every interval until ctx is done.
// Failed sweeps are retried with exponential backoff.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	failures := 0

	for {
		delay := w.cfg.Interval

		if _, err := w.SweepOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay = w.backoff(failures)
			failures++
			w.log.Error("token sweep failed", "err", err, "attempt", failures, "retry_in", delay)
		} else {
			failures = 0
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("worker received shutdown signal")
			return nil
		case <-timer.C:
		}
	}
}

func (w *Worker) SweepOnce(ctx context.Context) (int64, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.cfg.SweepTimeout)
	defer cancel()

	cutoff := w.now().Add(-w.cfg.Retention)

	n, err := w.tokens.PurgeExpired(sweepCtx, cutoff)
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.ObserveSweep(n, err)
	}
	if err != nil {
		return 0, err
	}

	if n > 0 {
		w.log.Info("purged refresh tokens", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
