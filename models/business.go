package models

import (
	"strconv"
	"strings"
)

// Business is one scraped place. Every field is always assigned: a value
// missing from the page is stored as the type's zero value.
type Business struct {
	Name           string
	Address        string
	Website        string
	PhoneNumber    string
	ReviewsCount   int
	ReviewsAverage float64
	Latitude       float64
	Longitude      float64
	OneStarReviews int
}

// Columns returns the tabular column names in field order.
func Columns() []string {
	return []string{
		"name",
		"address",
		"website",
		"phone_number",
		"reviews_count",
		"reviews_average",
		"latitude",
		"longitude",
		"one_star_reviews",
	}
}

// Row renders the business as strings in Columns order.
func (b Business) Row() []string {
	return []string{
		b.Name,
		b.Address,
		b.Website,
		b.PhoneNumber,
		strconv.Itoa(b.ReviewsCount),
		formatFloat(b.ReviewsAverage),
		formatFloat(b.Latitude),
		formatFloat(b.Longitude),
		strconv.Itoa(b.OneStarReviews),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SearchUnit is one (search term, region) pair.
type SearchUnit struct {
	Term   string
	Region string
}

// Query is the text typed into the search box.
func (u SearchUnit) Query() string {
	return u.Term + " " + u.Region
}

// FileStem is the output file name without extension. Only the term has its
// spaces replaced; the region is used verbatim.
func (u SearchUnit) FileStem() string {
	return "google_maps_data_" + strings.ReplaceAll(u.Term, " ", "_") + "_" + u.Region
}

// Batch holds the businesses collected for one SearchUnit, in extraction order.
type Batch struct {
	Unit       SearchUnit
	Businesses []Business
}

// NewBatch creates an empty batch for the unit.
func NewBatch(unit SearchUnit) *Batch {
	return &Batch{Unit: unit, Businesses: make([]Business, 0)}
}

// Add appends a completed record.
func (b *Batch) Add(business Business) {
	b.Businesses = append(b.Businesses, business)
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Businesses)
}

// StoredBusiness is a Business read back from the database together with the
// search unit it was collected for.
type StoredBusiness struct {
	ID   int64
	Unit SearchUnit
	Business
}

// InsightReport holds the computed analytics over every collected business.
type InsightReport struct {
	TotalBusinesses    int
	SearchUnits        int
	EmptyUnits         int
	WithWebsite        int
	WithPhone          int
	AverageRating      float64
	MinRating          float64
	MaxRating          float64
	MostReviewed       *StoredBusiness
	TopRated           []*StoredBusiness
	BusinessesByRegion map[string]int
}
