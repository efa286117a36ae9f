package gmaps

import "context"

// View is the live map application the scraper drives. Browser implements it
// with chromedp; tests substitute an in-memory fake.
type View interface {
	// Open navigates to url.
	Open(ctx context.Context, url string) error
	// FillSearch types query into the search box.
	FillSearch(ctx context.Context, query string) error
	// SubmitSearch presses Enter in the search box.
	SubmitSearch(ctx context.Context) error
	// ScrollResults triggers lazy loading of the result list.
	ScrollResults(ctx context.Context) error
	// CountResults returns how many place results are currently rendered.
	CountResults(ctx context.Context) (int, error)
	// Results returns a handle for every rendered place result, in list order.
	Results(ctx context.Context) ([]Listing, error)
	// OpenListing clicks the listing's container, opening its detail view.
	OpenListing(ctx context.Context, listing Listing) error
	// CurrentURL returns the view's current location.
	CurrentURL(ctx context.Context) (string, error)
	// Snapshot captures the detail view currently shown.
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// Listing is a handle to one result in the scrollable list. It refers to the
// container of the place anchor, since the detail view opens from the
// container's click target.
type Listing struct {
	Index int
	Label string
	Href  string
}

// Snapshot is the rendered markup and location of a detail view.
type Snapshot struct {
	HTML string
	URL  string
}
