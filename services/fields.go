package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedCoordinates is returned when a place URL does not carry a
// "/@lat,lng" segment.
var ErrMalformedCoordinates = errors.New("malformed coordinates in url")

// oneStarRegexp captures "<digits> 1-star" anywhere in the review summary.
var oneStarRegexp = regexp.MustCompile(`(?i)(\d+)\s*1-star`)

// ParseReviewCount reads the leading integer of a review summary such as
// "1,234 reviews". Anything that is not a clean count yields 0.
func ParseReviewCount(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseOneStarReviews extracts the one-star count from a review summary,
// e.g. "1,234 reviews · 56 1-star" → 56. Returns 0 when absent.
func ParseOneStarReviews(text string) int {
	match := oneStarRegexp.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// ParseReviewsAverage reads the leading number of a star-rating label such
// as "4,6 stars". Decimal commas are accepted.
func ParseReviewsAverage(label string) float64 {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0
	}
	return val
}

// ExtractCoordinatesFromURL parses latitude and longitude from the segment
// following the last "/@" of a place URL:
//
//	https://www.google.com/maps/place/X/@-33.8688,151.2093,12z/data=... → (-33.8688, 151.2093)
//
// Unlike the other fields there is no zero default; a URL without a usable
// segment is an error.
func ExtractCoordinatesFromURL(rawURL string) (float64, float64, error) {
	idx := strings.LastIndex(rawURL, "/@")
	if idx < 0 {
		return 0, 0, fmt.Errorf("%w: no /@ marker in %q", ErrMalformedCoordinates, rawURL)
	}

	segment := rawURL[idx+2:]
	if slash := strings.IndexByte(segment, '/'); slash >= 0 {
		segment = segment[:slash]
	}

	parts := strings.Split(segment, ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedCoordinates, segment)
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrMalformedCoordinates, parts[0])
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrMalformedCoordinates, parts[1])
	}
	if !inRange(lat, 90) || !inRange(lng, 180) {
		return 0, 0, fmt.Errorf("%w: (%v, %v) out of range", ErrMalformedCoordinates, lat, lng)
	}
	return lat, lng, nil
}

// inRange rejects NaN and infinities along with values beyond ±limit.
func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
