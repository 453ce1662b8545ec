package engine

import (
	"context"
	"time"

	"github.com/samber/lo"
)

// PowerConsumptionByDistrict buckets each device's counter delta by district.
// Districts passed in are reported even when none of their devices reported.
func (e *Engine) PowerConsumptionByDistrict(ctx context.Context, districts []string) (DistrictTotals, error) {
	return e.byDistrict(ctx, districts, func(dc DeviceConsumption) float64 {
		return dc.Delta
	})
}

// RevenueByDistrict buckets each device's tariff-weighted delta by district
func (e *Engine) RevenueByDistrict(ctx context.Context, districts []string) (DistrictTotals, error) {
	return e.byDistrict(ctx, districts, func(dc DeviceConsumption) float64 {
		return dc.Delta * dc.TariffPrice
	})
}

func (e *Engine) byDistrict(ctx context.Context, districts []string, value func(DeviceConsumption) float64) (DistrictTotals, error) {
	deltas, had, _, err := e.consumption(ctx)
	if err != nil {
		return DistrictTotals{}, err
	}

	totals := make(map[string]float64, len(districts))
	for _, d := range districts {
		totals[d] = 0
	}
	for _, dc := range deltas {
		totals[dc.District] += value(dc)
	}
	return DistrictTotals{Totals: totals, HadData: had}, nil
}

// Districts returns the distinct districts of the resolved devices, sorted
func (e *Engine) Districts() []string {
	set := lo.SliceToMap(e.devices, func(d Device) (string, struct{}) { return d.District, struct{}{} })
	return sortedKeys(set)
}

// TotalRevenue sums delta times tariff over every device, rounded to 2 decimals
func (e *Engine) TotalRevenue(ctx context.Context) (Metric, error) {
	deltas, had, anomalies, err := e.consumption(ctx)
	if err != nil {
		return Metric{}, err
	}
	return Metric{Value: round2(revenue(deltas)), HadData: had, Anomalies: anomalies}, nil
}

func revenue(deltas []DeviceConsumption) float64 {
	return lo.SumBy(deltas, func(dc DeviceConsumption) float64 { return dc.Delta * dc.TariffPrice })
}

// RevenueLoss compares the theoretical energy of each device running at its
// average load around the clock with what its counter actually recorded.
func (e *Engine) RevenueLoss(ctx context.Context) (RevenueLoss, error) {
	energy, err := e.fetch(ctx, Ascending, ColImportEnergy)
	if err != nil {
		return RevenueLoss{}, err
	}
	loads, err := e.AverageLoad(ctx)
	if err != nil {
		return RevenueLoss{}, err
	}

	out := RevenueLoss{HadData: e.coverage(energy)}
	for _, d := range e.devices {
		rs := energy[d.ID]
		if len(rs) == 0 {
			continue
		}

		days := int(rs[len(rs)-1].Timestamp.Sub(rs[0].Timestamp) / (24 * time.Hour))
		if days < 1 {
			days = 1
		}

		delta, _ := counterDelta(rs)
		if delta < 0 && e.cfg.ClampNegativeDeltas {
			delta = 0
		}

		out.TotalValue += loads[d.ID] * 24 * float64(days)
		out.Consumption += delta
	}
	return out, nil
}

// RevenuePerHour divides total revenue by the availability hours. A zero or
// degenerate availability yields 0.
func (e *Engine) RevenuePerHour(ctx context.Context, availabilityHours float64) (float64, error) {
	rev, err := e.TotalRevenue(ctx)
	if err != nil {
		return 0, err
	}
	return safeDiv(rev.Value, availabilityHours), nil
}

// TariffPlan returns the mean tariff price across the resolved devices
func (e *Engine) TariffPlan() float64 {
	return mean(lo.Map(e.devices, func(d Device, _ int) float64 { return d.TariffPrice }))
}

// TariffLosses is the revenue gap of devices billed below the average tariff:
// the sum over devices of (average tariff - device tariff) * device delta.
func TariffLosses(avgTariff float64, deltas []DeviceConsumption) float64 {
	return lo.SumBy(deltas, func(dc DeviceConsumption) float64 {
		return (avgTariff - dc.TariffPrice) * dc.Delta
	})
}

// UntappedRevenue estimates revenue not earned while devices were down. The
// energy sold per available hour is extended over the remaining hours of
// the day and priced at the average tariff.
func UntappedRevenue(avgTariff, availabilityHoursPerDay, consumption float64) float64 {
	if availabilityHoursPerDay <= 0 {
		return 0
	}
	downtime := max(24-availabilityHoursPerDay, 0)
	return safeDiv(consumption, availabilityHoursPerDay) * downtime * avgTariff
}

// TariffLosses computes TariffLosses over the engine's devices
func (e *Engine) TariffLosses(ctx context.Context) (float64, error) {
	deltas, err := e.DeviceConsumption(ctx)
	if err != nil {
		return 0, err
	}
	return round2(TariffLosses(e.TariffPlan(), deltas)), nil
}

// UntappedRevenue computes UntappedRevenue from an availability already
// computed by the caller.
func (e *Engine) UntappedRevenue(ctx context.Context, availabilityHoursPerDay float64) (float64, error) {
	total, err := e.TotalConsumption(ctx)
	if err != nil {
		return 0, err
	}
	return round2(UntappedRevenue(e.TariffPlan(), availabilityHoursPerDay, total.Value)), nil
}

// CustomerBreakdown classifies each reporting device as paying when its
// delta stays within the default threshold, defaulting otherwise.
func (e *Engine) CustomerBreakdown(ctx context.Context) (CustomerBreakdown, error) {
	deltas, had, _, err := e.consumption(ctx)
	if err != nil {
		return CustomerBreakdown{}, err
	}

	out := CustomerBreakdown{HadData: had}
	for _, dc := range deltas {
		if dc.Delta <= e.cfg.CustomerDefaultThreshold {
			out.Paying++
		} else {
			out.Defaulting++
		}
	}
	return out, nil
}
