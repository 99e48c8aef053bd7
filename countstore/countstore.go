// Package countstore tracks period-bucketed usage counters keyed by
// (counter name, subject). Bucket keys embed the UTC hour or date, so
// "reset" is lazy: when the clock crosses a period boundary the reads
// simply land in a fresh (zero) bucket, no sweeper needed.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	IncrementBy(ctx context.Context, name, val string, amount int) error
	// IncrementByIdem applies the increment at most once per idemKey, so
	// client retries don't double-count. Returns false if the key was
	// already consumed.
	IncrementByIdem(ctx context.Context, name, val string, amount int, idemKey string) (bool, error)
}

func periodBucket(name, val, period string) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := time.Now().UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := time.Now().UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}

// PeriodEnd returns when the current bucket for the period rolls over
// (zero time for the unbounded total period).
func PeriodEnd(period string) time.Time {
	now := time.Now().UTC()
	switch period {
	case PeriodDay:
		return now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	case PeriodHour:
		return now.Truncate(time.Hour).Add(time.Hour)
	default:
		return time.Time{}
	}
}
