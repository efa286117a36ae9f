package gmaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmaps-scraper/models"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestSettler() *Settler {
	return &Settler{MinDelay: 100 * time.Millisecond, Interval: 50 * time.Millisecond, Clock: newFakeClock()}
}

// newDefaultSettler uses the production poll timings on clock.
func newDefaultSettler(clock Clock) *Settler {
	return &Settler{MinDelay: 750 * time.Millisecond, Interval: 250 * time.Millisecond, Clock: clock}
}

// fakeView simulates the map application. growth maps a query to the result
// count observed after each successive scroll; the last value repeats.
// With a clock set, scrolls and clicks only render after scrollLag and
// detailLag respectively.
type fakeView struct {
	growth       map[string][]int
	defaultGrow  []int
	query        string
	scrolls      int
	url          string
	opened       []int
	queries      []string
	snapshotErrs map[int]error
	snapshots    map[int]Snapshot
	openErr      error
	searchErr    error
	scrollErr    error
	onOpen       func(index int)
	stuck        map[int]bool

	clock      *fakeClock
	scrollLag  time.Duration
	detailLag  time.Duration
	scrolledAt time.Time
	pendingURL string
	clickedAt  time.Time
}

func newFakeView(defaultGrow ...int) *fakeView {
	return &fakeView{
		growth:       make(map[string][]int),
		defaultGrow:  defaultGrow,
		snapshotErrs: make(map[int]error),
		snapshots:    make(map[int]Snapshot),
		stuck:        make(map[int]bool),
	}
}

func (v *fakeView) Open(_ context.Context, url string) error {
	if v.openErr != nil {
		return v.openErr
	}
	v.url = url
	return nil
}

func (v *fakeView) FillSearch(_ context.Context, query string) error {
	if v.searchErr != nil {
		return v.searchErr
	}
	v.query = query
	v.queries = append(v.queries, query)
	return nil
}

func (v *fakeView) SubmitSearch(context.Context) error {
	v.scrolls = 0
	v.url = "https://www.google.com/maps/search/" + v.query
	return nil
}

func (v *fakeView) ScrollResults(context.Context) error {
	if v.scrollErr != nil {
		return v.scrollErr
	}
	v.scrolls++
	if v.clock != nil {
		v.scrolledAt = v.clock.Now()
	}
	return nil
}

func (v *fakeView) count() int {
	seq, ok := v.growth[v.query]
	if !ok {
		seq = v.defaultGrow
	}
	rendered := v.scrolls
	if v.clock != nil && v.clock.Now().Sub(v.scrolledAt) < v.scrollLag {
		rendered--
	}
	if rendered <= 0 || len(seq) == 0 {
		return 0
	}
	idx := rendered - 1
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	return seq[idx]
}

func (v *fakeView) CountResults(context.Context) (int, error) {
	return v.count(), nil
}

func (v *fakeView) Results(context.Context) ([]Listing, error) {
	n := v.count()
	listings := make([]Listing, n)
	for i := range listings {
		listings[i] = Listing{
			Index: i,
			Label: fmt.Sprintf("Place %d", i),
			Href:  fmt.Sprintf("https://www.google.com/maps/place/p%d", i),
		}
	}
	return listings, nil
}

func (v *fakeView) OpenListing(_ context.Context, listing Listing) error {
	v.opened = append(v.opened, listing.Index)
	if v.onOpen != nil {
		v.onOpen(listing.Index)
	}
	if v.stuck[listing.Index] {
		return nil
	}

	target := fakePlaceURL(listing.Index)
	if v.clock != nil && v.detailLag > 0 {
		v.pendingURL, v.clickedAt = target, v.clock.Now()
		return nil
	}
	v.url = target
	return nil
}

// fakePlaceURL puts listing i at latitude 10.5+i.
func fakePlaceURL(i int) string {
	return fmt.Sprintf("https://www.google.com/maps/place/p%d/@%d.5,20.25,17z/data=x", i, 10+i)
}

func (v *fakeView) currentURL() string {
	if v.pendingURL != "" && v.clock.Now().Sub(v.clickedAt) >= v.detailLag {
		v.url, v.pendingURL = v.pendingURL, ""
	}
	return v.url
}

func (v *fakeView) CurrentURL(context.Context) (string, error) {
	return v.currentURL(), nil
}

func (v *fakeView) Snapshot(context.Context) (Snapshot, error) {
	idx := v.opened[len(v.opened)-1]
	if err, ok := v.snapshotErrs[idx]; ok {
		return Snapshot{}, err
	}
	if snap, ok := v.snapshots[idx]; ok {
		return snap, nil
	}
	return Snapshot{HTML: detailHTML, URL: v.currentURL()}, nil
}

func (v *fakeView) Close() error { return nil }

// recordingSink keeps a copy of every flushed batch.
type recordingSink struct {
	batches []models.Batch
	err     error
}

func (s *recordingSink) Flush(_ context.Context, batch *models.Batch) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, *batch)
	return nil
}

// recordingObserver keeps every event.
type recordingObserver struct {
	events []Event
}

func (o *recordingObserver) Observe(e Event) { o.events = append(o.events, e) }

func (o *recordingObserver) kinds() []EventKind {
	kinds := make([]EventKind, 0, len(o.events))
	for _, e := range o.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (o *recordingObserver) count(kind EventKind) int {
	n := 0
	for _, e := range o.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

var errDetailTimeout = errors.New("detail view timed out")

const detailHTML = `<html><body>
<div role="main">
  <button data-item-id="address"><div class="Io6YTe fontBodyMedium kR99db">1 Macquarie St, Sydney NSW 2000</div></button>
  <a data-item-id="authority" href="https://www.google.com/url?q=https://example.com"><div class="Io6YTe fontBodyMedium">example.com</div></a>
  <button data-item-id="phone:tel:+61292507111"><div class="Io6YTe fontBodyMedium">(02) 9250 7111</div></button>
  <div jsaction="pane.reviewChart.moreReviews">
    <div class="fontDisplayLarge">4,6</div>
    <div role="img" aria-label="4,6 stars"></div>
    <button jsaction="pane.reviewChart.moreReviews"><span>1,234 reviews · 56 1-star</span></button>
  </div>
</div>
</body></html>`
