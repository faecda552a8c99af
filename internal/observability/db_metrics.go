package observability

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlstate -> error label; anything else is reported as pg_<code>
var pgErrorLabels = map[string]string{
	"23503": "foreign_key_violation",
	"23505": "unique_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// ObserveDB times fn under a logical op name such as "notes.search".
// A missing row is a normal outcome and is not counted as an error.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
	case errors.Is(err, pgx.ErrNoRows):
		p.DbQueryDuration.WithLabelValues(op, "no_rows").Observe(elapsed)
	default:
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	return err
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if label, ok := pgErrorLabels[pgErr.Code]; ok {
			return label
		}
		return "pg_" + pgErr.Code
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case pgconn.SafeToRetry(err), errors.As(err, &netErr):
		return "connection"
	default:
		return "unknown"
	}
}
