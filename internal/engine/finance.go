package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samber/lo"
)

// FinanceCards are the headline finance figures. Every ratio is 0 when its
// denominator is zero.
type FinanceCards struct {
	TotalRevenue    float64 `json:"total_revenue"`
	DowntimeLosses  float64 `json:"downtime_losses"`
	TariffLosses    float64 `json:"tariff_losses"`
	HighestLosses   float64 `json:"highest_losses"`
	HighestRevenue  float64 `json:"highest_revenue"`
	UntappedRevenue float64 `json:"untapped_revenue"`
}

// FinanceCards assembles the finance card figures from one consumption
// query and one availability scan.
func (e *Engine) FinanceCards(ctx context.Context) (FinanceCards, error) {
	deltas, err := e.DeviceConsumption(ctx)
	if err != nil {
		return FinanceCards{}, err
	}
	avail, err := e.Availability(ctx)
	if err != nil {
		return FinanceCards{}, err
	}

	total := round2(revenue(deltas))
	consumed := lo.SumBy(deltas, func(dc DeviceConsumption) float64 { return dc.Delta })
	tariff := e.TariffPlan()

	return FinanceCards{
		TotalRevenue:    total,
		DowntimeLosses:  round2(safeDiv(total, avail.OfflineHours)),
		TariffLosses:    round2(TariffLosses(tariff, deltas)),
		HighestLosses:   round2(safeDiv(total, avail.HoursPerDay)),
		HighestRevenue:  round2(safeDiv(total, float64(len(e.devices)))),
		UntappedRevenue: round2(UntappedRevenue(tariff, avail.HoursPerDay, consumed)),
	}, nil
}

// FinancePerformanceByMonth returns bought and billed totals for each of
// the twelve months, over the ledgers of the devices' sites.
func (e *Engine) FinancePerformanceByMonth(ctx context.Context) ([]FinanceRow, error) {
	return e.financePerformance(ctx, BucketMonth, 12, func(i int) string { return monthLabels[i-1] })
}

// FinancePerformanceByDay returns bought and billed totals per day of month
func (e *Engine) FinancePerformanceByDay(ctx context.Context) ([]FinanceRow, error) {
	return e.financePerformance(ctx, BucketDay, 31, strconv.Itoa)
}

func (e *Engine) financePerformance(ctx context.Context, bucket Bucket, n int, label func(int) string) ([]FinanceRow, error) {
	if e.ledger == nil {
		return nil, ErrNoLedger
	}

	sites := lo.Uniq(lo.Map(e.devices, func(d Device, _ int) int64 { return d.SiteID }))
	totals, err := e.ledger.SumByBucket(ctx, sites, e.window, bucket)
	if err != nil {
		return nil, fmt.Errorf("summing ledger by %s: %w", bucket, err)
	}

	rows := make([]FinanceRow, 0, n)
	for i := 1; i <= n; i++ {
		t := totals[i]
		rows = append(rows, FinanceRow{
			Bucket: i,
			Label:  label(i),
			Bought: round2(t.Bought),
			Billed: round2(t.Billed),
		})
	}
	return rows, nil
}
