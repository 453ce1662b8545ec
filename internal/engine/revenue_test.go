package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revenueFixture() (*memReadings, []Device) {
	store := &memReadings{}
	store.add(energySeries("a", day0, 100, 150)...) // 50
	store.add(energySeries("b", day0, 0, 30)...)    // 30
	store.add(energySeries("c", day0, 10, 30)...)   // 20
	devices := []Device{
		{ID: "a", District: "North", TariffPrice: 2},
		{ID: "b", District: "South", TariffPrice: 4},
		{ID: "c", District: "North", TariffPrice: 3},
		{ID: "d", District: "East", TariffPrice: 6},
	}
	return store, devices
}

func TestPowerConsumptionByDistrict(t *testing.T) {
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	got, err := e.PowerConsumptionByDistrict(context.Background(), []string{"West"})
	require.NoError(t, err)

	assert.Equal(t, []DistrictRow{
		{District: "North", Value: 70},
		{District: "South", Value: 30},
		{District: "West", Value: 0},
	}, got.Rows())
	assert.False(t, got.HadData["d"])
}

func TestRevenueByDistrict(t *testing.T) {
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	got, err := e.RevenueByDistrict(context.Background(), e.Districts())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"North": 160, "South": 120, "East": 0}, got.Totals)
}

func TestTotalRevenue(t *testing.T) {
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	m, err := e.TotalRevenue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 280.0, m.Value)
}

func TestRevenuePerHour(t *testing.T) {
	ctx := context.Background()
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	got, err := e.RevenuePerHour(ctx, 20)
	require.NoError(t, err)
	assert.InDelta(t, 14.0, got, 1e-9)

	got, err = e.RevenuePerHour(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "zero availability must not produce Inf")

	empty := newTestEngine(&memReadings{}, Device{ID: "x"})
	got, err = empty.RevenuePerHour(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "0/0 must not produce NaN")
}

func TestRevenueLoss(t *testing.T) {
	store := &memReadings{}
	// a: 2 days span, average load 10
	store.add(
		Reading{DeviceID: "a", Timestamp: day0, ImportEnergy: 100, ActivePowerTotal: 5},
		Reading{DeviceID: "a", Timestamp: day0.Add(24 * time.Hour), ImportEnergy: 200, ActivePowerTotal: 10},
		Reading{DeviceID: "a", Timestamp: day0.Add(48 * time.Hour), ImportEnergy: 400, ActivePowerTotal: 15},
	)
	// b: under a day, counts as one day
	store.add(
		Reading{DeviceID: "b", Timestamp: day0, ImportEnergy: 0, ActivePowerTotal: 2},
		Reading{DeviceID: "b", Timestamp: day0.Add(time.Hour), ImportEnergy: 20, ActivePowerTotal: 2},
	)
	e := newTestEngine(store, Device{ID: "a"}, Device{ID: "b"}, Device{ID: "c"})

	got, err := e.RevenueLoss(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 10*24*2+2*24*1.0, got.TotalValue, 1e-9)
	assert.InDelta(t, 320.0, got.Consumption, 1e-9)
	assert.InDelta(t, got.TotalValue, got.Billing(), 1e-9)
	assert.InDelta(t, 320.0, got.Collection(), 1e-9)
	assert.InDelta(t, 528-320.0, got.Downtime(), 1e-9)
	assert.InDelta(t, 528+320.0, got.Total(), 1e-9)
	assert.False(t, got.HadData["c"])
}

func TestTariffPlanAndLosses(t *testing.T) {
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	assert.InDelta(t, 3.75, e.TariffPlan(), 1e-9)

	// (3.75-2)*50 + (3.75-4)*30 + (3.75-3)*20
	losses, err := e.TariffLosses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 95.0, losses)
}

func TestUntappedRevenue(t *testing.T) {
	assert.InDelta(t, 100.0/20*4*2, UntappedRevenue(2, 20, 100), 1e-9)
	assert.Equal(t, 0.0, UntappedRevenue(2, 0, 100))
	assert.Equal(t, 0.0, UntappedRevenue(2, 24, 100))
	assert.Equal(t, 0.0, UntappedRevenue(2, 30, 100), "availability above 24h has no downtime")
}

func TestCustomerBreakdown(t *testing.T) {
	store, devices := revenueFixture()
	e := newTestEngine(store, devices...)

	got, err := e.CustomerBreakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Paying, "c consumed exactly the threshold")
	assert.Equal(t, 2, got.Defaulting)
	assert.False(t, got.HadData["d"])
}
