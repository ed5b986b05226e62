package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/wingsite/internal/cache"
)

// Pruner deletes rows older than a cutoff.
type Pruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteInboundMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob prunes event log entries and inbound messages older than
// retention. A non-positive retention disables pruning.
func RetentionJob(p Pruner, retention time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:        "retention",
		Description: "Delete old event log entries and inbound messages",
		Schedule:    "0 3 * * *",
		Run: func(ctx context.Context) error {
			if retention <= 0 {
				return nil
			}
			cutoff := time.Now().Add(-retention)

			events, errEvents := p.DeleteEventsBefore(ctx, cutoff)
			inbound, errInbound := p.DeleteInboundMessagesBefore(ctx, cutoff)
			if err := errors.Join(errEvents, errInbound); err != nil {
				return err
			}

			if events > 0 || inbound > 0 {
				logger.Info("pruned old records", "events", events, "inbound_messages", inbound, "cutoff", cutoff)
			}
			return nil
		},
	}
}

// CacheStatsJob logs cache statistics when the backend provides them.
func CacheStatsJob(c cache.Cache, logger *slog.Logger) Job {
	return Job{
		Name:        "cache-stats",
		Description: "Log cache hit rate and size",
		Schedule:    "@hourly",
		Run: func(context.Context) error {
			sp, ok := c.(cache.StatsProvider)
			if !ok {
				return nil
			}
			st := sp.Stats()
			logger.Info("cache stats",
				"backend", st.Backend,
				"hits", st.Hits,
				"misses", st.Misses,
				"items", st.Items,
				"hit_rate", st.HitRate,
			)
			return nil
		},
	}
}

// FuncJob wraps a function without an error result, such as a limiter prune.
func FuncJob(name, description, schedule string, fn func()) Job {
	return Job{
		Name:        name,
		Description: description,
		Schedule:    schedule,
		Run: func(context.Context) error {
			fn()
			return nil
		},
	}
}
