package engine

import (
	"context"
	"time"
)

// counterDelta returns last minus first of an ascending energy series
func counterDelta(rs []Reading) (float64, bool) {
	if len(rs) == 0 {
		return 0, false
	}
	return rs[len(rs)-1].ImportEnergy - rs[0].ImportEnergy, true
}

// consumption computes the per-device counter delta over the window.
// Devices without samples are absent from the returned slice.
func (e *Engine) consumption(ctx context.Context) ([]DeviceConsumption, map[string]bool, []string, error) {
	grouped, err := e.fetch(ctx, Ascending, ColImportEnergy)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		out       []DeviceConsumption
		anomalies []string
	)
	for _, d := range e.devices {
		delta, ok := counterDelta(grouped[d.ID])
		if !ok {
			continue
		}
		if delta < 0 {
			anomalies = append(anomalies, d.ID)
			if e.cfg.ClampNegativeDeltas {
				delta = 0
			}
		}
		out = append(out, DeviceConsumption{
			DeviceID:    d.ID,
			District:    d.District,
			TariffPrice: d.TariffPrice,
			Delta:       delta,
		})
	}
	return out, e.coverage(grouped), anomalies, nil
}

// DeviceConsumption returns the counter delta of every device that reported
func (e *Engine) DeviceConsumption(ctx context.Context) ([]DeviceConsumption, error) {
	out, _, _, err := e.consumption(ctx)
	return out, err
}

// TotalConsumption sums the energy counter delta of every device, rounded to 2 decimals
func (e *Engine) TotalConsumption(ctx context.Context) (Metric, error) {
	deltas, had, anomalies, err := e.consumption(ctx)
	if err != nil {
		return Metric{}, err
	}

	total := 0.0
	for _, dc := range deltas {
		total += dc.Delta
	}
	return Metric{Value: round2(total), HadData: had, Anomalies: anomalies}, nil
}

// CurrentLoad sums the latest active power of every device
func (e *Engine) CurrentLoad(ctx context.Context) (Metric, error) {
	grouped, err := e.fetch(ctx, Descending, ColPowerTotal)
	if err != nil {
		return Metric{}, err
	}

	total := 0.0
	for _, d := range e.devices {
		if rs := grouped[d.ID]; len(rs) > 0 {
			total += rs[0].ActivePowerTotal
		}
	}
	return Metric{Value: round2(total), HadData: e.coverage(grouped)}, nil
}

// AverageLoad returns the mean active power of each device that reported
func (e *Engine) AverageLoad(ctx context.Context) (map[string]float64, error) {
	grouped, err := e.fetch(ctx, Ascending, ColPowerTotal)
	if err != nil {
		return nil, err
	}
	return averageLoads(grouped), nil
}

func averageLoads(grouped map[string][]Reading) map[string]float64 {
	out := make(map[string]float64, len(grouped))
	for id, rs := range grouped {
		if len(rs) == 0 {
			continue
		}
		sum := 0.0
		for _, r := range rs {
			sum += r.ActivePowerTotal
		}
		out[id] = sum / float64(len(rs))
	}
	return out
}

// EnergyByMonth returns twelve buckets of counter deltas, one per calendar
// month, summed across devices. Each device contributes last minus first of
// its samples dated within that month of the window.
func (e *Engine) EnergyByMonth(ctx context.Context) ([]BucketValue, error) {
	grouped, err := e.fetch(ctx, Ascending, ColImportEnergy)
	if err != nil {
		return nil, err
	}

	var totals [12]float64
	for _, d := range e.devices {
		byMonth := make(map[time.Month][]Reading)
		for _, r := range grouped[d.ID] {
			m := readingDate(r).Month()
			byMonth[m] = append(byMonth[m], r)
		}
		for m, rs := range byMonth {
			delta, _ := counterDelta(rs)
			if delta < 0 && e.cfg.ClampNegativeDeltas {
				delta = 0
			}
			totals[m-1] += delta
		}
	}

	out := make([]BucketValue, 12)
	for i := range totals {
		out[i] = BucketValue{Bucket: i + 1, Label: monthLabels[i], Value: round2(totals[i])}
	}
	return out, nil
}

// readingDate prefers the denormalized date column and falls back to the
// UTC date of the timestamp
func readingDate(r Reading) time.Time {
	if r.Date.IsZero() {
		return r.Timestamp.UTC()
	}
	return r.Date
}
