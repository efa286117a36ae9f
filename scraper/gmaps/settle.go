package gmaps

import (
	"context"
	"time"
)

// Clock abstracts time so settling can be tested without real waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Probe reads some observable state of the view, such as the result count
// or the current URL.
type Probe func(ctx context.Context) (string, error)

// Settler waits for asynchronous rendering to finish after an action. A read
// only counts once it differs from the value observed before the action, and
// it must then hold for one Interval. If nothing changes the full limit is
// waited. A non-positive Interval degrades to a fixed wait of the limit
// followed by a single read.
type Settler struct {
	MinDelay time.Duration
	Interval time.Duration
	Clock    Clock
}

// NewSettler creates a Settler on the wall clock.
func NewSettler(minDelay, interval time.Duration) *Settler {
	return &Settler{MinDelay: minDelay, Interval: interval, Clock: realClock{}}
}

func (s *Settler) clock() Clock {
	if s.Clock == nil {
		return realClock{}
	}
	return s.Clock
}

// Pause blocks for d or until ctx is cancelled.
func (s *Settler) Pause(ctx context.Context, d time.Duration) error {
	return s.clock().Sleep(ctx, d)
}

// Wait blocks until probe reports a stable value other than before, limit
// elapses or ctx is cancelled. It reports whether the value moved away from
// before. Probe errors are returned to the caller.
func (s *Settler) Wait(ctx context.Context, limit time.Duration, before string, probe Probe) (bool, error) {
	clock := s.clock()

	if s.Interval <= 0 {
		if err := clock.Sleep(ctx, limit); err != nil {
			return false, err
		}
		cur, err := probe(ctx)
		if err != nil {
			return false, err
		}
		return cur != before, nil
	}

	deadline := clock.Now().Add(limit)
	if err := clock.Sleep(ctx, min(s.MinDelay, limit)); err != nil {
		return false, err
	}

	prev, err := probe(ctx)
	if err != nil {
		return false, err
	}
	for {
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return prev != before, nil
		}
		if err := clock.Sleep(ctx, min(s.Interval, remaining)); err != nil {
			return false, err
		}
		cur, err := probe(ctx)
		if err != nil {
			return false, err
		}
		if cur != before && cur == prev {
			return true, nil
		}
		prev = cur
	}
}
