package gmaps

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gmaps-scraper/models"
	"gmaps-scraper/services"
)

// Detail view selectors. Each field is read from the first match only.
const (
	addressSelector       = `button[data-item-id="address"] div[class*="fontBodyMedium"]`
	websiteSelector       = `a[data-item-id="authority"] div[class*="fontBodyMedium"]`
	phoneSelector         = `button[data-item-id*="phone:tel:"] div[class*="fontBodyMedium"]`
	reviewCountSelector   = `button[jsaction="pane.reviewChart.moreReviews"] span`
	reviewAverageSelector = `div[jsaction="pane.reviewChart.moreReviews"] div[role="img"]`

	labelAttr = "aria-label"
)

// Extractor turns a detail view snapshot into a Business.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds the record for listing from snap. Missing markup leaves the
// field at its zero value; only unparseable coordinates fail the listing.
func (e *Extractor) Extract(listing Listing, snap Snapshot) (models.Business, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return models.Business{}, fmt.Errorf("parse detail html: %w", err)
	}

	b := models.Business{
		Name:        services.NormaliseText(listing.Label),
		Address:     firstText(doc, addressSelector),
		Website:     firstText(doc, websiteSelector),
		PhoneNumber: firstText(doc, phoneSelector),
	}

	reviewText := firstText(doc, reviewCountSelector)
	b.ReviewsCount = services.ParseReviewCount(reviewText)
	b.OneStarReviews = services.ParseOneStarReviews(reviewText)

	if label, ok := doc.Find(reviewAverageSelector).First().Attr(labelAttr); ok {
		b.ReviewsAverage = services.ParseReviewsAverage(label)
	}

	b.Latitude, b.Longitude, err = services.ExtractCoordinatesFromURL(snap.URL)
	if err != nil {
		return models.Business{}, fmt.Errorf("coordinates: %w", err)
	}

	return b, nil
}

func firstText(doc *goquery.Document, selector string) string {
	return services.NormaliseText(doc.Find(selector).First().Text())
}
