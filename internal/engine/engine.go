package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoDevicesLinked is the configuration error for an empty device set
	ErrNoDevicesLinked = errors.New("no linked devices")
	// ErrInvalidDateRange is returned for malformed or reversed windows
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrNoLedger is returned by finance methods when no ledger is wired
	ErrNoLedger = errors.New("no transaction ledger configured")
)

// Engine computes dashboard metrics for a fixed device set and window.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	readings ReadingsStore
	ledger   TransactionLedger
	devices  []Device
	byID     map[string]Device
	window   Window
	cfg      Config
}

// Option customizes an Engine
type Option func(*Engine)

// WithLedger wires the transaction ledger used by the finance methods
func WithLedger(l TransactionLedger) Option {
	return func(e *Engine) { e.ledger = l }
}

// New creates an engine over an already resolved device set
func New(readings ReadingsStore, devices []Device, window Window, cfg Config, opts ...Option) (*Engine, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevicesLinked
	}
	if window.Start.After(window.End) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDateRange, window)
	}

	e := &Engine{
		readings: readings,
		byID:     make(map[string]Device, len(devices)),
		window:   window,
		cfg:      cfg.withDefaults(),
	}

	// Sites can share a device; keep the first occurrence
	for _, d := range devices {
		if _, dup := e.byID[d.ID]; dup {
			continue
		}
		e.byID[d.ID] = d
		e.devices = append(e.devices, d)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dependencies are the collaborators Open resolves a scope against
type Dependencies struct {
	Readings ReadingsStore
	Devices  DeviceResolver
	Ledger   TransactionLedger
	Clock    clockwork.Clock
}

// Scope is the dashboard request filter: companies, sites and an optional window
type Scope struct {
	Companies []int64
	Sites     []int64
	Start     string
	End       string
}

// Open resolves the scope's devices and window and builds an engine
func Open(ctx context.Context, deps Dependencies, scope Scope, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	window, err := NormalizeWindow(scope.Start, scope.End, clock.Now(), cfg.DefaultWindowDays)
	if err != nil {
		return nil, err
	}

	devices, err := deps.Devices.Resolve(ctx, scope.Companies, scope.Sites)
	if err != nil {
		return nil, fmt.Errorf("resolving devices: %w", err)
	}

	var opts []Option
	if deps.Ledger != nil {
		opts = append(opts, WithLedger(deps.Ledger))
	}
	return New(deps.Readings, devices, window, cfg, opts...)
}

// Window returns the engine's date range
func (e *Engine) Window() Window { return e.window }

// Config returns the effective configuration
func (e *Engine) Config() Config { return e.cfg }

// Devices returns the resolved device set in resolution order
func (e *Engine) Devices() []Device { return slices.Clone(e.devices) }

// DeviceIDs returns the identifiers of the resolved devices
func (e *Engine) DeviceIDs() []string {
	ids := make([]string, len(e.devices))
	for i, d := range e.devices {
		ids[i] = d.ID
	}
	return ids
}

// fetch runs one batched query per chunk of devices over the engine window
// and groups the rows by device, preserving the requested ordering. Rows
// missing any of cols are skipped.
func (e *Engine) fetch(ctx context.Context, order Order, cols ...Column) (map[string][]Reading, error) {
	return e.query(ctx, Query{Order: order, Columns: cols})
}

// fetchPartial is fetch keeping rows that carry at least one of cols
func (e *Engine) fetchPartial(ctx context.Context, order Order, cols ...Column) (map[string][]Reading, error) {
	return e.query(ctx, Query{Order: order, Columns: cols, Partial: true})
}

func (e *Engine) query(ctx context.Context, base Query) (map[string][]Reading, error) {
	chunks := chunkIDs(e.DeviceIDs(), e.cfg.QueryBatchSize)
	results := make([][]Reading, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelQueries)

	for i, ids := range chunks {
		g.Go(func() error {
			q := base
			q.DeviceIDs = ids
			q.Window = e.window
			rows, err := e.readings.Fetch(gctx, q)
			if err != nil {
				return fmt.Errorf("fetching readings: %w", err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grouped := make(map[string][]Reading, len(e.devices))
	for _, rows := range results {
		for _, r := range rows {
			if _, ok := e.byID[r.DeviceID]; !ok {
				continue
			}
			grouped[r.DeviceID] = append(grouped[r.DeviceID], r)
		}
	}

	// The outage scan depends on per-device timestamp order
	for id, rs := range grouped {
		slices.SortStableFunc(rs, func(a, b Reading) int {
			if base.Order == Descending {
				return b.Timestamp.Compare(a.Timestamp)
			}
			return a.Timestamp.Compare(b.Timestamp)
		})
		grouped[id] = rs
	}
	return grouped, nil
}

// coverage returns a HadData map filled from grouped rows
func (e *Engine) coverage(grouped map[string][]Reading) map[string]bool {
	had := make(map[string]bool, len(e.devices))
	for _, d := range e.devices {
		had[d.ID] = len(grouped[d.ID]) > 0
	}
	return had
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 || size >= len(ids) {
		return [][]string{ids}
	}
	return slices.Collect(slices.Chunk(ids, size))
}
