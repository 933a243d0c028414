// Package store defines the port the reporting and seeding layers talk to.
package store

import (
	"context"

	"txboard/internal/core"
	"txboard/internal/query"
)

// TransactionStore is the persistence port: filtered count, filtered and
// paginated retrieval, aggregate sum, category grouping, and the
// delete-all-then-insert full replace the seeder performs. Any backing
// engine can be substituted without touching the reporting service.
type TransactionStore interface {
	// ReplaceAll deletes every record and inserts the given ones.
	ReplaceAll(ctx context.Context, records []core.Transaction) error

	// Count returns how many records match the filter.
	Count(ctx context.Context, f query.Filter) (int64, error)

	// Find returns up to limit matching records after skipping offset,
	// in insertion order.
	Find(ctx context.Context, f query.Filter, offset, limit int) ([]core.Transaction, error)

	// SumPrice returns the sum of prices over matching records, 0 when
	// nothing matches.
	SumPrice(ctx context.Context, f query.Filter) (float64, error)

	// CategoryCounts groups matching records by category. Categories with
	// no matching records are omitted.
	CategoryCounts(ctx context.Context, f query.Filter) ([]core.CategoryCount, error)
}
