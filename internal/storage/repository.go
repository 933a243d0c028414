// Package storage implements the TransactionStore port on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"txboard/internal/core"
	applog "txboard/internal/log"
	"txboard/internal/query"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReplaceAll deletes every record and inserts the given ones in one
// transaction. The seed contract itself promises no atomicity; the
// transaction is a free upgrade the engine gives us.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []core.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("delete existing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, title, description, price, date_of_sale, category, sold)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range records {
		sold := 0
		if t.Sold {
			sold = 1
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, t.Title, t.Description, t.Price, t.DateOfSale.Unix(), t.Category, sold)
		if err != nil {
			return fmt.Errorf("insert record %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace transaction: %w", err)
	}

	slog.InfoContext(ctx, "Replaced transaction collection", applog.FieldRecords, len(records))
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, f query.Filter) (int64, error) {
	where, args := buildWhere(f)

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Find(ctx context.Context, f query.Filter, offset, limit int) ([]core.Transaction, error) {
	where, args := buildWhere(f)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, price, date_of_sale, category, sold
		FROM transactions`+where+`
		ORDER BY seq
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0, limit)
	for rows.Next() {
		var (
			t        core.Transaction
			saleUnix int64
			sold     int
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &saleUnix, &t.Category, &sold); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.DateOfSale = core.Date{Time: time.Unix(saleUnix, 0).UTC()}
		t.Sold = sold != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SumPrice(ctx context.Context, f query.Filter) (float64, error) {
	where, args := buildWhere(f)

	// COALESCE keeps the "no matches" case at 0 instead of NULL.
	var sum float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(price), 0) FROM transactions`+where, args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transaction prices: %w", err)
	}
	return sum, nil
}

func (s *SQLiteStore) CategoryCounts(ctx context.Context, f query.Filter) ([]core.CategoryCount, error) {
	where, args := buildWhere(f)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM transactions`+where+`
		GROUP BY category
		ORDER BY category`, args...)
	if err != nil {
		return nil, fmt.Errorf("count transactions by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryCount
	for rows.Next() {
		var cc core.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return out, nil
}

// buildWhere translates a query.Filter into SQL, mirroring Filter.Matches.
func buildWhere(f query.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		// LIKE is case-insensitive for ASCII only; the memory backend's
		// strings.ToLower folds full Unicode, so a non-ASCII search can
		// match there and not here. The seed dataset is ASCII. The price
		// is matched against its trimmed decimal text, so "10" finds 210.
		conds = append(conds, `(title LIKE ? ESCAPE '\'
			OR description LIKE ? ESCAPE '\'
			OR rtrim(rtrim(CAST(price AS TEXT), '0'), '.') LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if f.Month != 0 {
		start, end := query.MonthWindow(f.Month)
		conds = append(conds, `date_of_sale >= ? AND date_of_sale < ?`)
		args = append(args, start.Unix(), end.Unix())
	}

	if f.Sold != nil {
		sold := 0
		if *f.Sold {
			sold = 1
		}
		conds = append(conds, `sold = ?`)
		args = append(args, sold)
	}

	if f.Bucket != nil {
		conds = append(conds, `price >= ?`)
		args = append(args, f.Bucket.Min)
		if !math.IsInf(f.Bucket.Max, 1) {
			conds = append(conds, `price <= ?`)
			args = append(args, f.Bucket.Max)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
