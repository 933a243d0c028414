package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// SaleYear is the calendar year all month-scoped reports are pinned to.
// The seed dataset carries sales for a single year, so the reports never
// take a year parameter.
const SaleYear = 2024

type (
	// Date wraps time.Time to accept the seed source's mixed timestamp
	// formats (full RFC 3339 or bare YYYY-MM-DD).
	Date struct {
		time.Time
	}

	// Transaction is the sole persisted entity. The id comes from the seed
	// source and is not generated by the store.
	Transaction struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		DateOfSale  Date    `json:"dateOfSale"`
		Category    string  `json:"category"`
		Sold        bool    `json:"sold"`
	}

	// CategoryCount is one row of the category breakdown report.
	CategoryCount struct {
		Category string
		Count    int64
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date of sale")
	ErrNegativePrice = errors.New("negative price")
)

var dateFormats = []string{time.RFC3339, "2006-01-02"}

// UnmarshalJSON parses either an RFC 3339 timestamp or a plain calendar date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (t Transaction) Validate() error {
	if t.DateOfSale.IsZero() {
		return ErrInvalidDate
	}
	if t.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// PriceText renders a price the way the search filter sees it: shortest
// decimal text, no trailing zeros ("210", "49.99").
func PriceText(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// PriceBucket is one fixed histogram range. Bounds are inclusive at both
// ends; the last bucket is unbounded above (Max is +Inf).
type PriceBucket struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether a price falls in the bucket.
func (b PriceBucket) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// PriceBuckets is the fixed histogram bucket table, in report order.
// Adjacent bounds differ by 1 so no value is counted twice even though the
// ranges are closed on both ends.
var PriceBuckets = []PriceBucket{
	{Label: "0-100", Min: 0, Max: 100},
	{Label: "101-200", Min: 101, Max: 200},
	{Label: "201-300", Min: 201, Max: 300},
	{Label: "301-400", Min: 301, Max: 400},
	{Label: "401-500", Min: 401, Max: 500},
	{Label: "501-600", Min: 501, Max: 600},
	{Label: "601-700", Min: 601, Max: 700},
	{Label: "701-800", Min: 701, Max: 800},
	{Label: "801-900", Min: 801, Max: 900},
	{Label: "901-above", Min: 901, Max: math.Inf(1)},
}
