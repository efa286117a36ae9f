package gmaps

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

func newTestScraper(view View, sink Sink, obs Observer) *Scraper {
	return New(view, sink, newTestSettler(), obs, Options{
		StartURL: "https://www.google.com/maps",
		Waits:    DefaultWaits(),
	})
}

func TestRunIteratesRegionsThenTerms(t *testing.T) {
	view := newFakeView(2, 2)
	sink := &recordingSink{}

	batches, err := newTestScraper(view, sink, nil).Run(context.Background(),
		[]string{"coffee", "tea"}, []string{"USA", "UK"}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"coffee USA", "tea USA", "coffee UK", "tea UK"}, view.queries)
	require.Len(t, sink.batches, 4)
	assert.Equal(t, models.SearchUnit{Term: "tea", Region: "USA"}, sink.batches[1].Unit)
	assert.Equal(t, models.SearchUnit{Term: "coffee", Region: "UK"}, sink.batches[2].Unit)
	assert.Len(t, batches, 4)
	for _, b := range batches {
		assert.Equal(t, 2, b.Len())
	}
}

func TestRunUnitExtractsInListingOrder(t *testing.T) {
	view := newFakeView(3, 3)
	sink := &recordingSink{}

	batch, err := newTestScraper(view, sink, nil).RunUnit(context.Background(), 0,
		models.SearchUnit{Term: "museum", Region: "Australia"}, 5)
	require.NoError(t, err)

	require.Equal(t, 3, batch.Len())
	assert.Equal(t, []int{0, 1, 2}, view.opened)
	for i, b := range batch.Businesses {
		assert.Equal(t, view.opened[i], i)
		assert.Equal(t, "1 Macquarie St, Sydney NSW 2000", b.Address)
		assert.Equal(t, 10.5+float64(i), b.Latitude)
		assert.Equal(t, 20.25, b.Longitude)
	}
	assert.Equal(t, "Place 0", batch.Businesses[0].Name)
	assert.Equal(t, "Place 2", batch.Businesses[2].Name)
}

func TestRunUnitSkipsFailedListing(t *testing.T) {
	view := newFakeView(4, 4)
	view.snapshotErrs[1] = errDetailTimeout
	view.snapshots[3] = Snapshot{HTML: detailHTML, URL: "https://www.google.com/maps/place/no-coords"}
	sink := &recordingSink{}
	obs := &recordingObserver{}

	batches, err := newTestScraper(view, sink, obs).Run(context.Background(),
		[]string{"gym"}, []string{"UK", "USA"}, 10)
	require.NoError(t, err)

	require.Len(t, batches, 2)
	// Listings 1 and 3 fail in every unit; the rest still produce records.
	assert.Equal(t, 2, batches[0].Len())
	assert.Equal(t, "Place 0", batches[0].Businesses[0].Name)
	assert.Equal(t, "Place 2", batches[0].Businesses[1].Name)
	assert.Equal(t, 2, batches[1].Len())
	assert.Equal(t, 4, obs.count(EventListingFailed))

	var failed []error
	for _, e := range obs.events {
		if e.Kind == EventListingFailed {
			failed = append(failed, e.Err)
		}
	}
	assert.ErrorIs(t, failed[0], errDetailTimeout)
}

func TestRunUnitWaitsForDetailViewToChange(t *testing.T) {
	clock := newFakeClock()
	view := newFakeView(3, 3)
	view.clock = clock
	view.detailLag = 1500 * time.Millisecond
	sink := &recordingSink{}

	s := New(view, sink, newDefaultSettler(clock), nil, Options{Waits: DefaultWaits()})
	batch, err := s.RunUnit(context.Background(), 0, models.SearchUnit{Term: "bakery", Region: "UK"}, 10)
	require.NoError(t, err)

	require.Equal(t, 3, batch.Len())
	for i, b := range batch.Businesses {
		assert.Equal(t, fmt.Sprintf("Place %d", i), b.Name)
		assert.Equal(t, 10.5+float64(i), b.Latitude, "listing %d", i)
	}
}

func TestRunUnitFailsListingWhoseDetailNeverOpens(t *testing.T) {
	view := newFakeView(3, 3)
	view.stuck[1] = true
	obs := &recordingObserver{}

	batch, err := newTestScraper(view, &recordingSink{}, obs).RunUnit(context.Background(), 0,
		models.SearchUnit{Term: "bakery", Region: "UK"}, 10)
	require.NoError(t, err)

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "Place 0", batch.Businesses[0].Name)
	assert.Equal(t, 10.5, batch.Businesses[0].Latitude)
	assert.Equal(t, "Place 2", batch.Businesses[1].Name)
	assert.Equal(t, 12.5, batch.Businesses[1].Latitude)

	require.Equal(t, 1, obs.count(EventListingFailed))
	for _, e := range obs.events {
		if e.Kind == EventListingFailed {
			assert.Equal(t, 1, e.Listing.Index)
			assert.ErrorIs(t, e.Err, ErrDetailNotOpened)
		}
	}
}

func TestRunUnitRecoversFromPanickingListing(t *testing.T) {
	view := newFakeView(2, 2)
	view.onOpen = func(index int) {
		if index == 0 {
			panic("node detached")
		}
	}
	sink := &recordingSink{}

	batch, err := newTestScraper(view, sink, nil).RunUnit(context.Background(), 0,
		models.SearchUnit{Term: "bar", Region: "UK"}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "Place 1", batch.Businesses[0].Name)
}

func TestRunUnitFlushesEmptyBatchWhenSearchFails(t *testing.T) {
	view := newFakeView(3)
	view.searchErr = errors.New("search box missing")
	sink := &recordingSink{}
	obs := &recordingObserver{}

	batches, err := newTestScraper(view, sink, obs).Run(context.Background(),
		[]string{"vet"}, []string{"USA", "UK"}, 10)
	require.NoError(t, err)

	require.Len(t, sink.batches, 2)
	assert.Zero(t, sink.batches[0].Len())
	assert.Len(t, batches, 2)
	assert.Equal(t, 2, obs.count(EventUnitFailed))
	assert.Equal(t, 2, obs.count(EventBatchFlushed))
}

func TestRunUnitFlushesEmptyBatchWhenNoResults(t *testing.T) {
	view := newFakeView(0)
	sink := &recordingSink{}

	batch, err := newTestScraper(view, sink, nil).RunUnit(context.Background(), 0,
		models.SearchUnit{Term: "unicorn stable", Region: "New Zealand"}, 10)
	require.NoError(t, err)
	assert.Zero(t, batch.Len())
	require.Len(t, sink.batches, 1)
	assert.Equal(t, "google_maps_data_unicorn_stable_New Zealand", sink.batches[0].Unit.FileStem())
}

func TestRunStopsOnSinkError(t *testing.T) {
	view := newFakeView(1, 1)
	sink := &recordingSink{err: errors.New("disk full")}

	batches, err := newTestScraper(view, sink, nil).Run(context.Background(),
		[]string{"a", "b"}, []string{"USA"}, 10)
	assert.ErrorIs(t, err, sink.err)
	assert.Empty(t, batches)
	assert.Equal(t, []string{"a USA"}, view.queries)
}

func TestRunFailsWhenStartPageFails(t *testing.T) {
	view := newFakeView(1)
	view.openErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	sink := &recordingSink{}

	_, err := newTestScraper(view, sink, nil).Run(context.Background(), []string{"a"}, []string{"USA"}, 10)
	assert.ErrorIs(t, err, view.openErr)
	assert.Empty(t, view.queries)
	assert.Empty(t, sink.batches)
}

func TestRunCancelledDoesNotFlushCurrentUnit(t *testing.T) {
	view := newFakeView(3, 3)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	view.onOpen = func(index int) {
		if index == 1 {
			cancel()
		}
	}

	_, err := newTestScraper(view, sink, nil).Run(ctx, []string{"a"}, []string{"USA"}, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.batches)
}

func TestRunEventStream(t *testing.T) {
	view := newFakeView(1, 1)
	obs := &recordingObserver{}
	flushed := 0
	countFlushes := ObserverFunc(func(e Event) {
		if e.Kind == EventBatchFlushed {
			flushed++
		}
	})

	_, err := newTestScraper(view, &recordingSink{}, Observers(obs, countFlushes, NewLogObserver(utils.NewNopLogger()))).
		Run(context.Background(), []string{"x", "y"}, []string{"UK"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)

	assert.Equal(t, []EventKind{
		EventUnitStarted, EventScrollProgress, EventExhausted, EventBatchFlushed,
		EventUnitStarted, EventScrollProgress, EventExhausted, EventBatchFlushed,
	}, obs.kinds())
	assert.Equal(t, 1, obs.events[4].TermIndex)
}
