package services

import (
	"fmt"
	"sort"
	"strings"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// FromBatches flattens in-memory batches into stored rows so Generate can
// work the same way whether data came from memory or the database.
func FromBatches(batches []models.Batch) []*models.StoredBusiness {
	var rows []*models.StoredBusiness
	for _, b := range batches {
		for _, biz := range b.Businesses {
			rows = append(rows, &models.StoredBusiness{Unit: b.Unit, Business: biz})
		}
	}
	return rows
}

func (s *InsightService) Generate(businesses []*models.StoredBusiness, batches []models.Batch) *models.InsightReport {
	report := &models.InsightReport{
		BusinessesByRegion: make(map[string]int),
		SearchUnits:        len(batches),
	}

	for _, b := range batches {
		if b.Len() == 0 {
			report.EmptyUnits++
		}
	}

	if len(businesses) == 0 {
		return report
	}

	report.TotalBusinesses = len(businesses)

	var rated []*models.StoredBusiness
	for _, b := range businesses {
		if b.Website != "" {
			report.WithWebsite++
		}
		if b.PhoneNumber != "" {
			report.WithPhone++
		}
		if b.ReviewsAverage > 0 {
			rated = append(rated, b)
		}
		if b.Unit.Region != "" {
			report.BusinessesByRegion[b.Unit.Region]++
		}
		if report.MostReviewed == nil || b.ReviewsCount > report.MostReviewed.ReviewsCount {
			report.MostReviewed = b
		}
	}

	// Rating stats (only businesses with a rating)
	if len(rated) > 0 {
		report.MinRating = rated[0].ReviewsAverage
		report.MaxRating = rated[0].ReviewsAverage
		var total float64
		for _, b := range rated {
			total += b.ReviewsAverage
			if b.ReviewsAverage < report.MinRating {
				report.MinRating = b.ReviewsAverage
			}
			if b.ReviewsAverage > report.MaxRating {
				report.MaxRating = b.ReviewsAverage
			}
		}
		report.AverageRating = round2(total / float64(len(rated)))
	}

	// Top 5 by rating, ties broken by review count
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].ReviewsAverage == rated[j].ReviewsAverage {
			return rated[i].ReviewsCount > rated[j].ReviewsCount
		}
		return rated[i].ReviewsAverage > rated[j].ReviewsAverage
	})
	if len(rated) > 5 {
		report.TopRated = rated[:5]
	} else {
		report.TopRated = rated
	}

	s.logger.Debug("[insights] %d businesses across %d search units", report.TotalBusinesses, report.SearchUnits)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📍 GOOGLE MAPS SCRAPE INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Search units           : \033[1m%d\033[0m (%d empty)\n", r.SearchUnits, r.EmptyUnits)
	fmt.Printf("  Businesses scraped     : \033[1m%d\033[0m\n", r.TotalBusinesses)
	fmt.Printf("  With website           : \033[1m%d\033[0m\n", r.WithWebsite)
	fmt.Printf("  With phone number      : \033[1m%d\033[0m\n", r.WithPhone)
	fmt.Println()

	// Rating Stats
	fmt.Printf("\033[1;33m  Rating Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AverageRating > 0 {
		fmt.Printf("  Average rating : \033[1;32m%.2f\033[0m\n", r.AverageRating)
		fmt.Printf("  Lowest rating  : \033[1;32m%.1f\033[0m\n", r.MinRating)
		fmt.Printf("  Highest rating : \033[1;32m%.1f\033[0m\n", r.MaxRating)
	} else {
		fmt.Printf("  No rating data available\n")
	}
	fmt.Println()

	if r.MostReviewed != nil {
		fmt.Printf("\033[1;33m  Most Reviewed Business\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostReviewed.Name, 50))
		fmt.Printf("  Address : %s\n", r.MostReviewed.Address)
		fmt.Printf("  Reviews : \033[1;31m%d\033[0m\n", r.MostReviewed.ReviewsCount)
		fmt.Println()
	}

	// ── TOP 5 HIGHEST RATED ──────────────────────────────────────────────
	fmt.Printf("\033[1;33m  Top 5 Highest Rated Businesses\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated businesses found\n")
	} else {
		for i, b := range r.TopRated {
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m (%d)\n",
				i+1, truncate(b.Name, 38), b.ReviewsAverage, b.ReviewsCount)
		}
	}
	fmt.Println()

	// Businesses by Region
	fmt.Printf("\033[1;33m  Businesses by Region\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.BusinessesByRegion) == 0 {
		fmt.Printf("  No region data\n")
	} else {
		type regionCount struct {
			region string
			count  int
		}
		var regions []regionCount
		for region, cnt := range r.BusinessesByRegion {
			regions = append(regions, regionCount{region, cnt})
		}
		sort.Slice(regions, func(i, j int) bool {
			if regions[i].count == regions[j].count {
				return regions[i].region < regions[j].region
			}
			return regions[i].count > regions[j].count
		})
		for _, rc := range regions {
			fmt.Printf("  %-30s %d\n", truncate(rc.region, 28), rc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
