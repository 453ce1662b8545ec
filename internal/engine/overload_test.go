package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverloadRatio(t *testing.T) {
	assert.InDelta(t, 1.0625, OverloadRatio(85, 100, 0.8), 1e-9)
	assert.Equal(t, 0.0, OverloadRatio(85, 0, 0.8), "zero capacity is never overloaded")
	assert.Equal(t, 0.0, OverloadRatio(85, -10, 0.8))
	assert.Equal(t, 0.0, OverloadRatio(0, 100, 0.8))
}

func TestOverloadedDevices(t *testing.T) {
	ctx := context.Background()

	t.Run("single sample above threshold", func(t *testing.T) {
		store := (&memReadings{}).add(powerAt("a", day0, 85))
		e := newTestEngine(store, Device{ID: "a", AssetCapacity: 100})

		c, err := e.OverloadedDevices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Value)
	})

	t.Run("any sample is enough", func(t *testing.T) {
		store := (&memReadings{}).add(
			powerAt("a", day0, 10),
			powerAt("a", day0.Add(time.Hour), 61), // 61/80 = 0.7625
			powerAt("a", day0.Add(2*time.Hour), 5),
			powerAt("b", day0, 60), // 60/80 = 0.75, not above
		)
		e := newTestEngine(store,
			Device{ID: "a", AssetCapacity: 100},
			Device{ID: "b", AssetCapacity: 100},
			Device{ID: "c", AssetCapacity: 100},
		)

		c, err := e.OverloadedDevices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Value)
		assert.Equal(t, map[string]bool{"a": true, "b": true, "c": false}, c.HadData)
	})

	t.Run("monotonic in threshold", func(t *testing.T) {
		store := (&memReadings{}).add(
			powerAt("a", day0, 20),
			powerAt("b", day0, 40),
			powerAt("c", day0, 70),
		)
		devices := []Device{
			{ID: "a", AssetCapacity: 100},
			{ID: "b", AssetCapacity: 100},
			{ID: "c", AssetCapacity: 100},
		}

		prev := -1
		for _, threshold := range []float64{1.2, 0.9, 0.75, 0.5, 0.3, 0.1} {
			cfg := DefaultConfig()
			cfg.OverloadRatioThreshold = threshold
			e, err := New(store, devices, win, cfg)
			require.NoError(t, err)

			c, err := e.OverloadedDevices(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, c.Value, prev, "threshold %.2f", threshold)
			prev = c.Value
		}
		assert.Equal(t, 3, prev)
	})
}

func TestDTStatus(t *testing.T) {
	store := (&memReadings{}).add(
		Reading{DeviceID: "a", Timestamp: day0, ActivePowerTotal: 10, Analog1: 1, Analog2: 1},
		Reading{DeviceID: "a", Timestamp: day0.Add(time.Hour), ActivePowerTotal: 40, Analog1: 20, Analog2: 10},
		Reading{DeviceID: "b", Timestamp: day0, ActivePowerTotal: 8, Analog1: 10, Analog2: 5},
	)
	e := newTestEngine(store,
		Device{ID: "a", AssetCapacity: 100},
		Device{ID: "b", AssetCapacity: 10},
		Device{ID: "c", AssetCapacity: 50},
	)

	s, err := e.DTStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DTStatus{
		Percentage:  1.5,   // 40/80 + 8/8
		Humidity:    61.62, // (10 + 5) * 4.108
		Temperature: 54.99, // (20 + 10) * 1.833
	}, s)
}

func TestDTStatus_WithoutAnalogSensors(t *testing.T) {
	store := (&memReadings{}).add(
		Reading{DeviceID: "a", Timestamp: day0, ActivePowerTotal: 10, Analog1: 5, Analog2: 5},
		missing(Reading{DeviceID: "a", Timestamp: day0.Add(time.Hour), ActivePowerTotal: 40}, ColAnalog1, ColAnalog2),
	)
	e := newTestEngine(store, Device{ID: "a", AssetCapacity: 100})

	s, err := e.DTStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DTStatus{Percentage: 0.5}, s, "latest sample is used even without analog channels")
}
