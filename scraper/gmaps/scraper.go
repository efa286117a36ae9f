package gmaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmaps-scraper/models"
)

// Waits are the upper bounds of each settle point.
type Waits struct {
	StartPage time.Duration
	Fill      time.Duration
	Submit    time.Duration
	Scroll    time.Duration
	Detail    time.Duration
}

// DefaultWaits mirror the fixed delays the site has been observed to need.
func DefaultWaits() Waits {
	return Waits{
		StartPage: 5 * time.Second,
		Fill:      3 * time.Second,
		Submit:    5 * time.Second,
		Scroll:    3 * time.Second,
		Detail:    5 * time.Second,
	}
}

// Sink receives each completed batch once.
type Sink interface {
	Flush(ctx context.Context, batch *models.Batch) error
}

// Options configures a Scraper.
type Options struct {
	StartURL   string
	MaxScrolls int
	Waits      Waits
}

// Scraper runs every search unit sequentially on a single View.
type Scraper struct {
	view      View
	sink      Sink
	settler   *Settler
	lister    *Lister
	extractor *Extractor
	observer  Observer
	opts      Options
}

// New creates a ready-to-use Scraper.
func New(view View, sink Sink, settler *Settler, observer Observer, opts Options) *Scraper {
	if observer == nil {
		observer = Observers()
	}
	return &Scraper{
		view:      view,
		sink:      sink,
		settler:   settler,
		lister:    NewLister(view, settler, opts.Waits.Scroll, opts.MaxScrolls, observer),
		extractor: NewExtractor(),
		observer:  observer,
		opts:      opts,
	}
}

// Run opens the start page and processes every (region, term) pair, regions
// as the outer loop. It returns the flushed batches in processing order.
// A cancelled ctx stops the run without flushing the unit in progress.
func (s *Scraper) Run(ctx context.Context, terms, regions []string, total int) ([]models.Batch, error) {
	if err := s.view.Open(ctx, s.opts.StartURL); err != nil {
		return nil, err
	}
	if err := s.settler.Pause(ctx, s.opts.Waits.StartPage); err != nil {
		return nil, err
	}

	batches := make([]models.Batch, 0, len(terms)*len(regions))
	for _, region := range regions {
		for i, term := range terms {
			unit := models.SearchUnit{Term: term, Region: region}
			batch, err := s.RunUnit(ctx, i, unit, total)
			if err != nil {
				return batches, err
			}
			batches = append(batches, *batch)
		}
	}
	return batches, nil
}

// RunUnit searches for one unit, extracts every discovered listing and
// flushes the batch, even when it is empty. Listing failures are reported
// and skipped; only cancellation and sink errors are returned.
func (s *Scraper) RunUnit(ctx context.Context, termIndex int, unit models.SearchUnit, total int) (*models.Batch, error) {
	s.observer.Observe(Event{Kind: EventUnitStarted, Unit: unit, TermIndex: termIndex})

	batch := models.NewBatch(unit)

	listings, err := s.discover(ctx, unit, total)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.observer.Observe(Event{Kind: EventUnitFailed, Unit: unit, TermIndex: termIndex, Err: err})
	}

	for _, listing := range listings {
		business, err := s.scrapeListing(ctx, listing)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.observer.Observe(Event{Kind: EventListingFailed, Unit: unit, Listing: listing, Err: err})
			continue
		}
		batch.Add(business)
	}

	if err := s.sink.Flush(ctx, batch); err != nil {
		return nil, fmt.Errorf("flush %s: %w", unit.FileStem(), err)
	}
	s.observer.Observe(Event{Kind: EventBatchFlushed, Unit: unit, Count: batch.Len()})
	return batch, nil
}

func (s *Scraper) discover(ctx context.Context, unit models.SearchUnit, total int) ([]Listing, error) {
	if err := s.view.FillSearch(ctx, unit.Query()); err != nil {
		return nil, err
	}
	if err := s.settler.Pause(ctx, s.opts.Waits.Fill); err != nil {
		return nil, err
	}
	before, err := s.view.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.view.SubmitSearch(ctx); err != nil {
		return nil, err
	}
	// Repeating the previous search leaves the URL unchanged, so an
	// unchanged URL here is not a failure.
	if _, err := s.settler.Wait(ctx, s.opts.Waits.Submit, before, s.urlProbe); err != nil {
		return nil, err
	}
	return s.lister.Collect(ctx, unit, total)
}

func (s *Scraper) scrapeListing(ctx context.Context, listing Listing) (business models.Business, err error) {
	// A panic while handling one listing drops only that listing.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing %d: %w: %v", listing.Index, errPanic, r)
		}
	}()

	before, err := s.view.CurrentURL(ctx)
	if err != nil {
		return models.Business{}, err
	}
	if err := s.view.OpenListing(ctx, listing); err != nil {
		return models.Business{}, err
	}
	// Until the URL moves the view still shows the previous place.
	changed, err := s.settler.Wait(ctx, s.opts.Waits.Detail, before, s.urlProbe)
	if err != nil {
		return models.Business{}, err
	}
	if !changed {
		return models.Business{}, fmt.Errorf("listing %d: %w", listing.Index, ErrDetailNotOpened)
	}
	snap, err := s.view.Snapshot(ctx)
	if err != nil {
		return models.Business{}, err
	}
	return s.extractor.Extract(listing, snap)
}

var errPanic = errors.New("recovered panic")

// ErrDetailNotOpened means the URL never left the previous page after a
// listing was clicked.
var ErrDetailNotOpened = errors.New("detail view did not open")

func (s *Scraper) urlProbe(ctx context.Context) (string, error) {
	return s.view.CurrentURL(ctx)
}
