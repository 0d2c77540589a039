package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by pgxpool.Pool and similar clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a client's Ping method into a readiness check.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// GoroutineCountCheck flags a goroutine leak when the count exceeds the
// threshold.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck flags memory pressure when the longest recent GC pause
// exceeds the threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		for _, pause := range stats.PauseNs {
			if d := time.Duration(pause); d > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", d, threshold)
			}
		}
		return nil
	}
}
