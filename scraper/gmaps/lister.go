package gmaps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gmaps-scraper/models"
)

// DefaultTotal is the target used when a non-positive total is requested.
const DefaultTotal = 1000

// Lister scrolls the result list until enough listings are loaded or the
// list stops growing.
type Lister struct {
	view       View
	settler    *Settler
	settle     time.Duration
	maxScrolls int
	observer   Observer
}

// NewLister creates a Lister. maxScrolls <= 0 disables the scroll cap.
func NewLister(view View, settler *Settler, settle time.Duration, maxScrolls int, observer Observer) *Lister {
	if observer == nil {
		observer = Observers()
	}
	return &Lister{
		view:       view,
		settler:    settler,
		settle:     settle,
		maxScrolls: maxScrolls,
		observer:   observer,
	}
}

// Collect returns the first total listings, or every listing once a scroll
// produces no new results.
func (l *Lister) Collect(ctx context.Context, unit models.SearchUnit, total int) ([]Listing, error) {
	if total <= 0 {
		total = DefaultTotal
	}

	previous := 0
	for scrolls := 1; ; scrolls++ {
		if err := l.view.ScrollResults(ctx); err != nil {
			return nil, fmt.Errorf("scroll results: %w", err)
		}
		if _, err := l.settler.Wait(ctx, l.settle, strconv.Itoa(previous), l.countProbe); err != nil {
			return nil, fmt.Errorf("wait for results: %w", err)
		}

		n, err := l.view.CountResults(ctx)
		if err != nil {
			return nil, fmt.Errorf("count results: %w", err)
		}

		switch {
		case n >= total:
			return l.take(ctx, unit, EventTargetMet, total)
		case n == previous:
			return l.take(ctx, unit, EventExhausted, n)
		case l.maxScrolls > 0 && scrolls >= l.maxScrolls:
			return l.take(ctx, unit, EventScrollCapReached, n)
		}

		previous = n
		l.observer.Observe(Event{Kind: EventScrollProgress, Unit: unit, Count: n})
	}
}

func (l *Lister) take(ctx context.Context, unit models.SearchUnit, kind EventKind, limit int) ([]Listing, error) {
	listings, err := l.view.Results(ctx)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if len(listings) > limit {
		listings = listings[:limit]
	}
	l.observer.Observe(Event{Kind: kind, Unit: unit, Count: len(listings)})
	return listings, nil
}

func (l *Lister) countProbe(ctx context.Context) (string, error) {
	n, err := l.view.CountResults(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}
