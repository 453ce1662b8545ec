package store

import (
	"context"
	"fmt"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/samber/lo"
)

// Transaction is one purchase/billing entry of a site's ledger
type Transaction struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	Date         time.Time `json:"date"`
	AmountBought float64   `json:"amount_bought"`
	AmountBilled float64   `json:"amount_billed"`
}

// AddTransaction appends an entry to a site's ledger and returns its id
func (s *Store) AddTransaction(ctx context.Context, t Transaction) (int64, error) {
	query := `INSERT INTO transactions (site_id, date, amount_bought, amount_billed) VALUES (?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query, t.SiteID, t.Date.Format(engine.DateFormat), t.AmountBought, t.AmountBilled)
	if err != nil {
		return 0, fmt.Errorf("adding transaction for site %d: %w", t.SiteID, err)
	}
	return res.LastInsertId()
}

var bucketFormat = map[engine.Bucket]string{
	engine.BucketMonth: "%m",
	engine.BucketDay:   "%d",
}

// SumByBucket sums bought and billed amounts of the sites' ledgers within the
// window, grouped by month of year or day of month.
func (s *Store) SumByBucket(ctx context.Context, siteIDs []int64, window engine.Window, bucket engine.Bucket) (map[int]engine.LedgerTotals, error) {
	format, ok := bucketFormat[bucket]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}

	totals := make(map[int]engine.LedgerTotals)
	if len(siteIDs) == 0 {
		return totals, nil
	}

	query := `SELECT CAST(strftime('` + format + `', date) AS INTEGER) AS bucket,
		SUM(amount_bought), SUM(amount_billed)
		FROM transactions
		WHERE site_id IN (` + placeholders(len(siteIDs)) + `) AND date BETWEEN ? AND ?
		GROUP BY bucket`

	args := append(lo.ToAnySlice(siteIDs), window.StartDate(), window.EndDate())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b int
			t engine.LedgerTotals
		)
		if err := rows.Scan(&b, &t.Bought, &t.Billed); err != nil {
			return nil, err
		}
		totals[b] = t
	}
	return totals, rows.Err()
}
