package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/awaistahir/grid-analytics/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "grid.db")},
		Readings: config.ReadingsConfig{Driver: config.DriverSQLite},
	}

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.Same(t, b.Store, b.Readings.(*store.Store))
	assert.Same(t, b.Store, b.Writer.(*store.Store))
	assert.NoError(t, b.EnsureSchema(context.Background()), "sqlite needs no extra schema")

	deps := b.Dependencies()
	assert.NotNil(t, deps.Devices)
	assert.NotNil(t, deps.Ledger)
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "grid.db")},
		Readings: config.ReadingsConfig{Driver: "csv"},
	}

	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown readings driver")
}
