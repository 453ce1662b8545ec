package engine

import (
	"context"
	"fmt"
)

const quartersPerHour = 4

// hourOf buckets on UTC wall time whatever location the store decoded into
func hourOf(r Reading) int {
	return r.Timestamp.UTC().Hour()
}

// bucketMean accumulates a per-bucket mean for one device
type bucketMean struct {
	sum   []float64
	count []int
}

func newBucketMean(n int) *bucketMean {
	return &bucketMean{sum: make([]float64, n), count: make([]int, n)}
}

func (b *bucketMean) add(i int, v float64) {
	b.sum[i] += v
	b.count[i]++
}

// mean of bucket i, 0 when the bucket is empty
func (b *bucketMean) mean(i int) float64 {
	if b.count[i] == 0 {
		return 0
	}
	return b.sum[i] / float64(b.count[i])
}

// LoadProfile averages active power per hour of day for each device and
// sums the device means. Always returns 24 points.
func (e *Engine) LoadProfile(ctx context.Context) ([]ProfilePoint, error) {
	totals, err := e.powerHistogram(ctx, 24, func(r Reading) int {
		return hourOf(r)
	})
	if err != nil {
		return nil, err
	}

	out := make([]ProfilePoint, 24)
	for h := range out {
		out[h] = ProfilePoint{Hour: h, Label: fmt.Sprintf("%02d:00", h), Value: round2(totals[h])}
	}
	return out, nil
}

// LoadProfileQuarterHour is LoadProfile split into four 15 minute
// sub-buckets per hour. Always returns 96 points.
func (e *Engine) LoadProfileQuarterHour(ctx context.Context) ([]ProfilePoint, error) {
	n := 24 * quartersPerHour
	totals, err := e.powerHistogram(ctx, n, func(r Reading) int {
		return hourOf(r)*quartersPerHour + r.Timestamp.UTC().Minute()/15
	})
	if err != nil {
		return nil, err
	}

	out := make([]ProfilePoint, n)
	for i := range out {
		h, m := i/quartersPerHour, (i%quartersPerHour)*15
		out[i] = ProfilePoint{Hour: h, Minute: m, Label: fmt.Sprintf("%02d:%02d", h, m), Value: round2(totals[i])}
	}
	return out, nil
}

func (e *Engine) powerHistogram(ctx context.Context, n int, bucket func(Reading) int) ([]float64, error) {
	grouped, err := e.fetch(ctx, Ascending, ColPowerTotal)
	if err != nil {
		return nil, err
	}

	totals := make([]float64, n)
	for _, d := range e.devices {
		bm := newBucketMean(n)
		for _, r := range grouped[d.ID] {
			bm.add(bucket(r), r.ActivePowerTotal)
		}
		for i := range totals {
			totals[i] += bm.mean(i)
		}
	}
	return totals, nil
}

// DailyVoltage returns per-phase mean voltage per hour of day, summed across
// devices. Each phase is averaged over the samples that reported it.
func (e *Engine) DailyVoltage(ctx context.Context) ([]PhaseRow, error) {
	return e.phaseProfile(ctx, [3]Column{ColVoltageA, ColVoltageB, ColVoltageC})
}

// DailyLoad returns per-phase mean active power per hour of day, summed across devices
func (e *Engine) DailyLoad(ctx context.Context) ([]PhaseRow, error) {
	return e.phaseProfile(ctx, [3]Column{ColPowerA, ColPowerB, ColPowerC})
}

// DailyPowerFactor returns per-phase mean power factor per hour of day, summed across devices
func (e *Engine) DailyPowerFactor(ctx context.Context) ([]PhaseRow, error) {
	return e.phaseProfile(ctx, [3]Column{ColPowerFactorA, ColPowerFactorB, ColPowerFactorC})
}

func (e *Engine) phaseProfile(ctx context.Context, cols [3]Column) ([]PhaseRow, error) {
	grouped, err := e.fetchPartial(ctx, Ascending, cols[:]...)
	if err != nil {
		return nil, err
	}

	rows := make([]PhaseRow, 24)
	for h := range rows {
		rows[h].Hour = h
	}

	for _, d := range e.devices {
		var phases [3]*bucketMean
		for p := range phases {
			phases[p] = newBucketMean(24)
		}
		for _, r := range grouped[d.ID] {
			h := hourOf(r)
			for p, c := range cols {
				if r.Has(c) {
					phases[p].add(h, r.Value(c))
				}
			}
		}
		for h := range rows {
			rows[h].A += phases[0].mean(h)
			rows[h].B += phases[1].mean(h)
			rows[h].C += phases[2].mean(h)
		}
	}

	for h := range rows {
		rows[h].A = round2(rows[h].A)
		rows[h].B = round2(rows[h].B)
		rows[h].C = round2(rows[h].C)
	}
	return rows, nil
}
