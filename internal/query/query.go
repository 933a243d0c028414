// Package query turns request parameters into store filters. It is the one
// place that knows the date-window and search semantics, so the SQLite and
// in-memory stores cannot drift apart.
package query

import (
	"strings"
	"time"

	"txboard/internal/core"
)

// Filter describes which transactions a store operation should touch.
// The zero value matches every record.
type Filter struct {
	// Search matches records whose title or description contains the text
	// case-insensitively, or whose price rendered as decimal text contains
	// it. This is a substring match, never a numeric comparison: "10"
	// matches a price of 210.
	Search string

	// Month scopes records to a calendar month of core.SaleYear.
	// Zero means no date scoping. The value is deliberately not validated;
	// out-of-range months resolve through time.Date normalization to a
	// window that simply matches nothing in the dataset.
	Month int

	// Sold, when non-nil, restricts to records with the given sold flag.
	Sold *bool

	// Bucket, when non-nil, restricts to records whose price falls inside
	// the bucket (closed on both ends, unlike the half-open month window).
	Bucket *core.PriceBucket
}

// Sold returns a *bool for Filter.Sold literals.
func Sold(v bool) *bool { return &v }

// MonthWindow resolves a month number to the half-open interval
// [first day of month, first day of next month) in core.SaleYear.
// The exclusive upper bound keeps last-day sales with a time-of-day
// component inside the window and the next month's records out of it.
func MonthWindow(month int) (start, end time.Time) {
	start = time.Date(core.SaleYear, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// Matches applies the filter as an in-memory predicate. The SQLite store
// mirrors these rules in SQL.
func (f Filter) Matches(t core.Transaction) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(core.PriceText(t.Price), f.Search) {
			return false
		}
	}
	if f.Month != 0 {
		start, end := MonthWindow(f.Month)
		d := t.DateOfSale.Time
		if d.Before(start) || !d.Before(end) {
			return false
		}
	}
	if f.Sold != nil && t.Sold != *f.Sold {
		return false
	}
	if f.Bucket != nil && !f.Bucket.Contains(t.Price) {
		return false
	}
	return true
}

// WithSold returns a copy of the filter restricted to the given sold flag.
func (f Filter) WithSold(sold bool) Filter {
	f.Sold = &sold
	return f
}

// WithBucket returns a copy of the filter restricted to a price bucket.
func (f Filter) WithBucket(b core.PriceBucket) Filter {
	f.Bucket = &b
	return f
}
