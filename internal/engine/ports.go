package engine

import (
	"context"
)

// Order is the timestamp ordering of a readings query
type Order int

const (
	Ascending Order = iota
	Descending
)

// Query selects a column slice of readings for a set of devices.
// Rows carrying NULL in any requested column are not returned unless
// Partial is set, in which case a row needs one non-NULL requested column
// and its NULL columns are reported in Reading.Missing.
type Query struct {
	DeviceIDs []string
	Window    Window
	Order     Order
	Columns   []Column
	Partial   bool
}

// ReadingsStore serves range queries over raw telemetry
type ReadingsStore interface {
	Fetch(ctx context.Context, q Query) ([]Reading, error)
}

// DeviceResolver maps companies and sites to devices. Empty filters match everything.
type DeviceResolver interface {
	Resolve(ctx context.Context, companies, sites []int64) ([]Device, error)
	Device(ctx context.Context, id string) (*Device, error)
}

// Bucket is the calendar granularity of ledger sums
type Bucket string

const (
	BucketMonth Bucket = "month"
	BucketDay   Bucket = "day"
)

// LedgerTotals are the summed amounts of one bucket
type LedgerTotals struct {
	Bought float64
	Billed float64
}

// TransactionLedger sums transaction history per calendar bucket.
// Keys of the result are month numbers (1-12) or days of month (1-31).
type TransactionLedger interface {
	SumByBucket(ctx context.Context, siteIDs []int64, window Window, bucket Bucket) (map[int]LedgerTotals, error)
}
