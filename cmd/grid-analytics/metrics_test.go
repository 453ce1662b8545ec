package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/awaistahir/grid-analytics/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupMetric(t *testing.T) {
	fn, err := lookupMetric("Total-Consumption")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = lookupMetric("key-insights")
	assert.ErrorIs(t, err, ErrUnknownMetric)
	assert.ErrorContains(t, err, "key-insights")
}

func TestMetricNamesSorted(t *testing.T) {
	names := metricNames()
	assert.Len(t, names, len(metrics))
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "dt-status")
}

func TestMetricsOverStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "grid.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SaveCompany(ctx, store.Company{ID: 1, Name: "Acme"}))
	require.NoError(t, st.SaveSite(ctx, store.Site{ID: 10, CompanyID: 1, Name: "Depot", District: "North"}))
	require.NoError(t, st.SaveTariff(ctx, store.Tariff{ID: 1, Name: "Flat", Price: 2}))
	require.NoError(t, st.SaveDevice(ctx, store.DeviceRecord{Serial: "dev-a", SiteID: 10, TariffID: 1, AssetCapacity: 100}))

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := []engine.Sample{
		{Reading: engine.Reading{DeviceID: "dev-a", Timestamp: day, ImportEnergy: 100}, Columns: []engine.Column{engine.ColImportEnergy}},
		{Reading: engine.Reading{DeviceID: "dev-a", Timestamp: day.Add(time.Hour), ImportEnergy: 130}, Columns: []engine.Column{engine.ColImportEnergy}},
	}
	require.NoError(t, st.WriteSamples(ctx, samples))

	deps := engine.Dependencies{Readings: st, Devices: st, Ledger: st}
	e, err := engine.Open(ctx, deps, engine.Scope{Companies: []int64{1}, Start: "2024-03-01", End: "2024-03-01"}, engine.DefaultConfig())
	require.NoError(t, err)

	got, err := metrics["total-consumption"](ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.(engine.Metric).Value)

	got, err = metrics["revenue-by-district"](ctx, e)
	require.NoError(t, err)
	assert.Equal(t, []engine.DistrictRow{{District: "North", Value: 60}}, got)

	got, err = metrics["tariff-plan"](ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}
