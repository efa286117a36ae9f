package gmaps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"gmaps-scraper/utils"
)

const (
	searchBoxSelector   = `#searchboxinput`
	placeAnchorSelector = `a[href*="https://www.google.com/maps/place"]`
	placeAnchorXPath    = `//a[contains(@href, "https://www.google.com/maps/place")]`
)

// BrowserOptions configures the Chrome session.
type BrowserOptions struct {
	Headless  bool
	ChromeBin string
	// Timeout bounds every single browser interaction.
	Timeout time.Duration
	Logger  *utils.Logger
}

// Browser is a View backed by a single chromedp tab. It is owned by one
// goroutine for the whole run.
type Browser struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *utils.Logger
}

// NewBrowser launches Chrome and opens the tab used for the whole run.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	opts.Logger.Info("[browser] Using browser binary: %s (headless=%t)", chromeBin, opts.Headless)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run allocates the browser and tab on tabCtx itself, so later
	// per-call timeouts cancel only their own actions.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Browser{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		timeout: timeout,
		logger:  opts.Logger,
	}, nil
}

// run executes actions on the tab, bounded by the per-call timeout and by ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *Browser) Open(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}

	var dismissed bool
	if err := b.run(ctx, chromedp.Evaluate(consentScript, &dismissed)); err != nil {
		b.logger.Debug("[browser] Consent check failed: %v", err)
	} else if dismissed {
		b.logger.Info("[browser] Dismissed consent banner")
	}
	return nil
}

func (b *Browser) FillSearch(ctx context.Context, query string) error {
	err := b.run(ctx,
		chromedp.WaitVisible(searchBoxSelector, chromedp.ByQuery),
		chromedp.Clear(searchBoxSelector, chromedp.ByQuery),
		chromedp.SendKeys(searchBoxSelector, query, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: fill search: %w", err)
	}
	return nil
}

func (b *Browser) SubmitSearch(ctx context.Context) error {
	if err := b.run(ctx, chromedp.SendKeys(searchBoxSelector, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: submit search: %w", err)
	}
	return nil
}

func (b *Browser) ScrollResults(ctx context.Context) error {
	if err := b.run(ctx, chromedp.Evaluate(scrollScript, nil)); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

func (b *Browser) CountResults(ctx context.Context) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, placeAnchorSelector)
	if err := b.run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("browser: count results: %w", err)
	}
	return n, nil
}

func (b *Browser) Results(ctx context.Context) ([]Listing, error) {
	type resultData struct {
		Label string `json:"label"`
		Href  string `json:"href"`
	}

	var data []resultData
	if err := b.run(ctx, chromedp.Evaluate(resultsScript, &data)); err != nil {
		return nil, fmt.Errorf("browser: read results: %w", err)
	}

	listings := make([]Listing, 0, len(data))
	for i, d := range data {
		listings = append(listings, Listing{Index: i, Label: d.Label, Href: d.Href})
	}
	return listings, nil
}

// OpenListing clicks the parent of the listing's anchor. The list only grows
// by appending, so the anchor's position is a stable handle.
func (b *Browser) OpenListing(ctx context.Context, listing Listing) error {
	container := fmt.Sprintf(`(%s)[%d]/..`, placeAnchorXPath, listing.Index+1)
	if err := b.run(ctx, chromedp.Click(container, chromedp.BySearch)); err != nil {
		return fmt.Errorf("browser: open listing %d: %w", listing.Index, err)
	}
	return nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := b.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return url, nil
}

func (b *Browser) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := b.run(ctx,
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
		chromedp.Location(&snap.URL),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("browser: snapshot: %w", err)
	}
	return snap, nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

const consentScript = `(function () {
  const selectors = [
    'button[aria-label="Accept all"]',
    'button[aria-label="I agree"]',
    'form[action*="consent"] button'
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (btn) {
      btn.click();
      return true;
    }
  }
  return false;
})()`

// scrollScript scrolls the results feed, or failing that the nearest
// scrollable ancestor of the first place anchor.
const scrollScript = `(function () {
  let target = document.querySelector('div[role="feed"]');
  if (!target) {
    let el = document.querySelector('` + placeAnchorSelector + `');
    while (el && el.scrollHeight <= el.clientHeight) {
      el = el.parentElement;
    }
    target = el;
  }
  if (target) {
    target.scrollBy(0, 10000);
  }
  return true;
})()`

const resultsScript = `(function () {
  const anchors = Array.from(document.querySelectorAll('` + placeAnchorSelector + `'));
  return anchors.map(a => {
    const container = a.parentElement;
    const label = (container && container.getAttribute('aria-label')) || a.getAttribute('aria-label') || '';
    return { label: label, href: a.href || '' };
  });
})()`
