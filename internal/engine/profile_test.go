package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	store := (&memReadings{}).add(
		powerAt("a", day0.Add(9*time.Hour), 10),
		powerAt("a", day0.Add(9*time.Hour+30*time.Minute), 30),
		powerAt("a", day0.AddDate(0, 0, 1).Add(9*time.Hour), 20),
		powerAt("b", day0.Add(9*time.Hour+5*time.Minute), 7),
		powerAt("b", day0.Add(23*time.Hour+59*time.Minute), 3),
	)
	e := newTestEngine(store, Device{ID: "a"}, Device{ID: "b"}, Device{ID: "c"})

	profile, err := e.LoadProfile(context.Background())
	require.NoError(t, err)
	require.Len(t, profile, 24)

	assert.Equal(t, ProfilePoint{Hour: 9, Label: "09:00", Value: 27}, profile[9], "mean(10,30,20) + 7")
	assert.Equal(t, 3.0, profile[23].Value)
	for _, p := range profile {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}
	assert.Equal(t, 0.0, profile[0].Value, "empty bucket is zero, not missing")
}

func TestLoadProfile_NoData(t *testing.T) {
	e := newTestEngine(&memReadings{}, Device{ID: "a"})

	profile, err := e.LoadProfile(context.Background())
	require.NoError(t, err)
	assert.Len(t, profile, 24)

	quarters, err := e.LoadProfileQuarterHour(context.Background())
	require.NoError(t, err)
	assert.Len(t, quarters, 96)
}

func TestLoadProfileQuarterHour(t *testing.T) {
	store := (&memReadings{}).add(
		powerAt("a", day0.Add(9*time.Hour+14*time.Minute), 10),
		powerAt("a", day0.Add(9*time.Hour+15*time.Minute), 30),
		powerAt("a", day0.Add(9*time.Hour+29*time.Minute), 50),
	)
	e := newTestEngine(store, Device{ID: "a"})

	profile, err := e.LoadProfileQuarterHour(context.Background())
	require.NoError(t, err)
	require.Len(t, profile, 96)

	assert.Equal(t, ProfilePoint{Hour: 9, Minute: 0, Label: "09:00", Value: 10}, profile[36])
	assert.Equal(t, ProfilePoint{Hour: 9, Minute: 15, Label: "09:15", Value: 40}, profile[37])
	assert.Equal(t, "23:45", profile[95].Label)
}

func TestDailyPhaseProfiles(t *testing.T) {
	ctx := context.Background()
	at := day0.Add(14 * time.Hour)
	store := (&memReadings{}).add(
		Reading{DeviceID: "a", Timestamp: at, VoltageA: 230, VoltageB: 228, VoltageC: 0,
			ActivePowerA: 4, ActivePowerB: 5, ActivePowerC: 6,
			PowerFactorA: 0.9, PowerFactorB: 0.8, PowerFactorC: 0.7},
		Reading{DeviceID: "a", Timestamp: at.Add(10 * time.Minute), VoltageA: 232, VoltageB: 226, VoltageC: 0,
			ActivePowerA: 6, ActivePowerB: 5, ActivePowerC: 4,
			PowerFactorA: 0.7, PowerFactorB: 0.8, PowerFactorC: 0.9},
		Reading{DeviceID: "b", Timestamp: at, VoltageA: 240, VoltageB: 240, VoltageC: 240,
			ActivePowerA: 1, ActivePowerB: 1, ActivePowerC: 1,
			PowerFactorA: 1, PowerFactorB: 1, PowerFactorC: 1},
	)
	e := newTestEngine(store, Device{ID: "a"}, Device{ID: "b"})

	voltage, err := e.DailyVoltage(ctx)
	require.NoError(t, err)
	require.Len(t, voltage, 24)
	assert.Equal(t, PhaseRow{Hour: 14, A: 471, B: 467, C: 240}, voltage[14])
	assert.Equal(t, PhaseRow{Hour: 3}, voltage[3])

	load, err := e.DailyLoad(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseRow{Hour: 14, A: 6, B: 6, C: 6}, load[14])

	pf, err := e.DailyPowerFactor(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseRow{Hour: 14, A: 1.8, B: 1.8, C: 1.8}, pf[14])
}

func TestDailyVoltage_SinglePhaseMeter(t *testing.T) {
	phaseA := func(ts time.Time, v float64) Reading {
		return missing(Reading{DeviceID: "single", Timestamp: ts, VoltageA: v}, ColVoltageB, ColVoltageC)
	}
	store := (&memReadings{}).add(
		phaseA(day0, 230),
		phaseA(day0.Add(30*time.Minute), 240),
		// reported no phase at all
		missing(Reading{DeviceID: "single", Timestamp: day0.Add(45 * time.Minute)}, ColVoltageA, ColVoltageB, ColVoltageC),
		Reading{DeviceID: "three", Timestamp: day0.Add(10 * time.Minute), VoltageA: 220, VoltageB: 221, VoltageC: 222},
	)
	e := newTestEngine(store, Device{ID: "single"}, Device{ID: "three"})

	rows, err := e.DailyVoltage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseRow{Hour: 0, A: 455, B: 221, C: 222}, rows[0], "mean(230,240) + 220 on A, B and C from the three-phase meter only")
}

func TestProfiles_BucketOnUTC(t *testing.T) {
	instant := day0.Add(30 * time.Minute)
	ctx := context.Background()

	for _, loc := range []*time.Location{time.UTC, time.FixedZone("UTC+1", 3600), time.FixedZone("UTC-5", -5*3600)} {
		t.Run(loc.String(), func(t *testing.T) {
			ts := instant.In(loc)
			store := (&memReadings{}).add(
				Reading{DeviceID: "a", Timestamp: ts, ActivePowerTotal: 10, VoltageA: 230, VoltageB: 231, VoltageC: 232},
			)
			e := newTestEngine(store, Device{ID: "a"})

			hourly, err := e.LoadProfile(ctx)
			require.NoError(t, err)
			assert.Equal(t, 10.0, hourly[0].Value)
			assert.Equal(t, 0.0, hourly[1].Value)
			assert.Equal(t, 0.0, hourly[19].Value)

			quarters, err := e.LoadProfileQuarterHour(ctx)
			require.NoError(t, err)
			assert.Equal(t, 10.0, quarters[2].Value, "00:30 falls in the third quarter of hour 0")

			voltage, err := e.DailyVoltage(ctx)
			require.NoError(t, err)
			assert.Equal(t, PhaseRow{Hour: 0, A: 230, B: 231, C: 232}, voltage[0])
		})
	}
}
