// Package seed loads the transaction collection from the remote dump.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"txboard/internal/amqp"
	"txboard/internal/core"
	applog "txboard/internal/log"
	"txboard/internal/store"
)

// DefaultSourceURL is the fixed public dump the dashboard is seeded from.
const DefaultSourceURL = "https://s3.amazonaws.com/roxiler.com/product_transaction.json"

// Seeder performs the one-shot destructive load: fetch the full document,
// then delete-all + insert-all through the store.
type Seeder struct {
	store  store.TransactionStore
	client *http.Client
	url    string
	events *amqp.Client
}

// NewSeeder creates a seeder for the given source URL. events may be nil,
// in which case no reseed notification is published.
func NewSeeder(s store.TransactionStore, url string, events *amqp.Client) *Seeder {
	if url == "" {
		url = DefaultSourceURL
	}
	return &Seeder{
		store:  s,
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
		events: events,
	}
}

// Seed fetches the source document and replaces the store contents with it.
// It returns the number of records loaded. Any fetch or store error aborts
// the operation; the store is left with whatever its own replace semantics
// guarantee.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	records, err := s.fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch seed document: %w", err)
	}

	if err := s.store.ReplaceAll(ctx, records); err != nil {
		return 0, fmt.Errorf("replace store contents: %w", err)
	}

	slog.InfoContext(ctx, "Database seeded", applog.FieldRecords, len(records), applog.FieldSource, s.url)

	// Best-effort notification; the seed itself already succeeded.
	if s.events != nil {
		if err := s.events.PublishReseed(ctx, len(records), s.url); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reseed event", applog.FieldError, err)
		}
	}

	return len(records), nil
}

func (s *Seeder) fetch(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %s", s.url, resp.Status)
	}

	var records []core.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed document: %w", err)
	}
	return records, nil
}
