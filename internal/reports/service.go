// Package reports implements the read side of the dashboard: the paginated
// listing and the three month-scoped aggregate reports.
package reports

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"txboard/internal/core"
	"txboard/internal/query"
	"txboard/internal/store"
)

const DefaultPerPage = 10

type (
	// Page is the List result: one page of records plus the total count of
	// the whole filtered set, not just the returned page.
	Page struct {
		Transactions []core.Transaction `json:"transactions"`
		Total        int64              `json:"total"`
	}

	// Statistics summarizes one month window. TotalSaleAmount covers sold
	// records only; the two counts partition the window by the sold flag.
	Statistics struct {
		TotalSaleAmount   float64 `json:"totalSaleAmount"`
		SoldItemsCount    int64   `json:"soldItemsCount"`
		NotSoldItemsCount int64   `json:"notSoldItemsCount"`
	}

	// RangeCount is one histogram bar.
	RangeCount struct {
		Range string `json:"range"`
		Count int64  `json:"count"`
	}

	// CategoryCount mirrors the original API's aggregation row shape,
	// category under "_id".
	CategoryCount struct {
		Category string `json:"_id"`
		Count    int64  `json:"count"`
	}

	// Combined bundles the three month reports of a single month.
	Combined struct {
		Statistics   Statistics      `json:"statistics"`
		PriceRange   []RangeCount    `json:"priceRangeData"`
		CategoryData []CategoryCount `json:"categoryData"`
	}
)

type Service struct {
	store store.TransactionStore
}

func NewService(s store.TransactionStore) *Service {
	return &Service{store: s}
}

// List returns one page of search-filtered records in insertion order.
// An out-of-range page yields an empty page with the unchanged total.
func (s *Service) List(ctx context.Context, page, perPage int, search string) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	f := query.Filter{Search: search}

	items, err := s.store.Find(ctx, f, (page-1)*perPage, perPage)
	if err != nil {
		return Page{}, fmt.Errorf("find transactions: %w", err)
	}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return Page{}, fmt.Errorf("count transactions: %w", err)
	}

	return Page{Transactions: items, Total: total}, nil
}

// Statistics computes the month's sold-price sum and sold/not-sold counts.
// The three aggregates are computed independently over the same window.
func (s *Service) Statistics(ctx context.Context, month int) (Statistics, error) {
	window := query.Filter{Month: month}

	total, err := s.store.SumPrice(ctx, window.WithSold(true))
	if err != nil {
		return Statistics{}, fmt.Errorf("sum sold prices: %w", err)
	}
	sold, err := s.store.Count(ctx, window.WithSold(true))
	if err != nil {
		return Statistics{}, fmt.Errorf("count sold items: %w", err)
	}
	notSold, err := s.store.Count(ctx, window.WithSold(false))
	if err != nil {
		return Statistics{}, fmt.Errorf("count not-sold items: %w", err)
	}

	return Statistics{
		TotalSaleAmount:   total,
		SoldItemsCount:    sold,
		NotSoldItemsCount: notSold,
	}, nil
}

// PriceRange counts the month's records per fixed price bucket. Each bucket
// is an independent count, so the contract holds for any bucket table, and
// the output order is the bucket table's order.
func (s *Service) PriceRange(ctx context.Context, month int) ([]RangeCount, error) {
	window := query.Filter{Month: month}
	out := make([]RangeCount, len(core.PriceBuckets))

	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range core.PriceBuckets {
		i, bucket := i, bucket
		g.Go(func() error {
			n, err := s.store.Count(gctx, window.WithBucket(bucket))
			if err != nil {
				return fmt.Errorf("count bucket %s: %w", bucket.Label, err)
			}
			out[i] = RangeCount{Range: bucket.Label, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryData groups the month's records by category; sold status is
// ignored and absent categories are omitted.
func (s *Service) CategoryData(ctx context.Context, month int) ([]CategoryCount, error) {
	counts, err := s.store.CategoryCounts(ctx, query.Filter{Month: month})
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}

	out := make([]CategoryCount, len(counts))
	for i, cc := range counts {
		out[i] = CategoryCount{Category: cc.Category, Count: cc.Count}
	}
	return out, nil
}

// CombinedData runs the three month reports concurrently; they are
// logically independent and share the same window definition.
func (s *Service) CombinedData(ctx context.Context, month int) (Combined, error) {
	var combined Combined

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.Statistics(gctx, month)
		if err != nil {
			return err
		}
		combined.Statistics = stats
		return nil
	})
	g.Go(func() error {
		ranges, err := s.PriceRange(gctx, month)
		if err != nil {
			return err
		}
		combined.PriceRange = ranges
		return nil
	})
	g.Go(func() error {
		cats, err := s.CategoryData(gctx, month)
		if err != nil {
			return err
		}
		combined.CategoryData = cats
		return nil
	})

	if err := g.Wait(); err != nil {
		return Combined{}, err
	}
	return combined, nil
}
