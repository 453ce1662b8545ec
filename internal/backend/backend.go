package backend

import (
	"context"
	"fmt"
	"log"

	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/awaistahir/grid-analytics/internal/influxdb"
	"github.com/awaistahir/grid-analytics/internal/postgres"
	"github.com/awaistahir/grid-analytics/internal/store"
)

// SampleWriter persists imported readings
type SampleWriter interface {
	WriteSamples(ctx context.Context, samples []engine.Sample) error
}

// Backend bundles the SQLite registry with the configured readings store
type Backend struct {
	Store    *store.Store
	Readings engine.ReadingsStore
	Writer   SampleWriter
	Driver   string

	closers []func()
}

// Open opens the registry database and connects the readings driver named in cfg
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	st, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	b := &Backend{Store: st, Driver: cfg.Readings.Driver}
	b.closers = append(b.closers, func() { st.Close() })

	switch cfg.Readings.Driver {
	case config.DriverSQLite:
		b.Readings = st
		b.Writer = st

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		readings := postgres.NewReadings(pool)
		b.Readings = readings
		b.Writer = readings

	case config.DriverInfluxDB:
		client, err := influxdb.NewClient(ctx, cfg.InfluxDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)

		b.Readings = influxdb.NewReadings(client, cfg.InfluxDB.Bucket, cfg.InfluxDB.Measurement)
		b.Writer = influxdb.NewWriter(client)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown readings driver %q", cfg.Readings.Driver)
	}

	log.Printf("Readings driver: %s", cfg.Readings.Driver)
	return b, nil
}

// Dependencies wires the backend into engine construction
func (b *Backend) Dependencies() engine.Dependencies {
	return engine.Dependencies{
		Readings: b.Readings,
		Devices:  b.Store,
		Ledger:   b.Store,
	}
}

// EnsureSchema creates the readings table on drivers that need one
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if r, ok := b.Readings.(interface{ EnsureSchema(context.Context) error }); ok {
		return r.EnsureSchema(ctx)
	}
	return nil
}

// Close releases every connection in reverse order of opening
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
