package engine

import (
	"context"
)

// OverloadRatio is active power over derated capacity, 0 for a
// non-positive capacity.
func OverloadRatio(power, capacity, derating float64) float64 {
	if capacity <= 0 || derating <= 0 {
		return 0
	}
	return safeDiv(power, capacity*derating)
}

// OverloadedDevices counts devices with any sample whose overload ratio
// exceeds the configured threshold.
func (e *Engine) OverloadedDevices(ctx context.Context) (Count, error) {
	grouped, err := e.fetch(ctx, Ascending, ColPowerTotal)
	if err != nil {
		return Count{}, err
	}

	n := 0
	for _, d := range e.devices {
		if overloaded(grouped[d.ID], d.AssetCapacity, e.cfg) {
			n++
		}
	}
	return Count{Value: n, HadData: e.coverage(grouped)}, nil
}

func overloaded(rs []Reading, capacity float64, cfg Config) bool {
	for _, r := range rs {
		if OverloadRatio(r.ActivePowerTotal, capacity, cfg.OverloadDerating) > cfg.OverloadRatioThreshold {
			return true
		}
	}
	return false
}

// DTStatus aggregates the latest sample of every device into the
// transformer status card: load percentage, humidity and temperature
// derived from the two analog channels. A channel missing from the latest
// sample contributes 0.
func (e *Engine) DTStatus(ctx context.Context) (DTStatus, error) {
	grouped, err := e.fetchPartial(ctx, Descending, ColPowerTotal, ColAnalog1, ColAnalog2)
	if err != nil {
		return DTStatus{}, err
	}

	var s DTStatus
	for _, d := range e.devices {
		rs := grouped[d.ID]
		if len(rs) == 0 {
			continue
		}
		latest := rs[0]
		s.Percentage += OverloadRatio(latest.ActivePowerTotal, d.AssetCapacity, e.cfg.OverloadDerating)
		s.Humidity += latest.Analog2 * e.cfg.HumidityScale
		s.Temperature += latest.Analog1 * e.cfg.TemperatureScale
	}

	s.Percentage = round2(s.Percentage)
	s.Humidity = round2(s.Humidity)
	s.Temperature = round2(s.Temperature)
	return s, nil
}
