package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Fanout delivers each event to every configured sink concurrently.
type Fanout struct {
	sinks []Publisher
}

// NewFanout drops nil entries and keeps the rest in order.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks}
}

// Publish sends evt to all sinks and waits for them. It returns how many
// sinks accepted the event and the joined errors of the rest, in sink order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, sink := range f.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			if err := sink.Publish(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", sink.Type(), sink.ID(), err)
			}
		}()
	}
	wg.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close releases sinks that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.sinks)
}
