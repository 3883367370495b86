package state

import (
	"context"

	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/metrics"
)

// Instrumented reports acquisitions made through this replica to the in-flight gauge.
type Instrumented struct {
	interaction.Tracker
}

// Instrument wraps a tracker.
func Instrument(tracker interaction.Tracker) *Instrumented {
	return &Instrumented{Tracker: tracker}
}

func (i *Instrumented) TryAcquire(ctx context.Context, key string) (bool, error) {
	ok, err := i.Tracker.TryAcquire(ctx, key)
	if ok && err == nil {
		metrics.InFlightInteractions.Inc()
	}
	return ok, err
}

func (i *Instrumented) Release(ctx context.Context, key string) error {
	err := i.Tracker.Release(ctx, key)
	if err == nil {
		metrics.InFlightInteractions.Dec()
	}
	return err
}
