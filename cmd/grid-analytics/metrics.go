package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/awaistahir/grid-analytics/internal/backend"
	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/spf13/cobra"
)

// ErrUnknownMetric is returned for a metric name the CLI does not serve
var ErrUnknownMetric = errors.New("unknown metric")

type metricFunc func(ctx context.Context, e *engine.Engine) (any, error)

// scalar adapts a metric method with a single result to metricFunc
func scalar[T any](fn func(*engine.Engine, context.Context) (T, error)) metricFunc {
	return func(ctx context.Context, e *engine.Engine) (any, error) {
		return fn(e, ctx)
	}
}

// withAvailability feeds the availability hours per day into fn
func withAvailability(fn func(*engine.Engine, context.Context, float64) (float64, error)) metricFunc {
	return func(ctx context.Context, e *engine.Engine) (any, error) {
		avail, err := e.Availability(ctx)
		if err != nil {
			return nil, err
		}
		return fn(e, ctx, avail.HoursPerDay)
	}
}

func byDistrict(fn func(*engine.Engine, context.Context, []string) (engine.DistrictTotals, error)) metricFunc {
	return func(ctx context.Context, e *engine.Engine) (any, error) {
		totals, err := fn(e, ctx, e.Districts())
		if err != nil {
			return nil, err
		}
		return totals.Rows(), nil
	}
}

var metrics = map[string]metricFunc{
	"total-consumption":       scalar((*engine.Engine).TotalConsumption),
	"current-load":            scalar((*engine.Engine).CurrentLoad),
	"availability":            scalar((*engine.Engine).Availability),
	"overloaded":              scalar((*engine.Engine).OverloadedDevices),
	"consumption-by-district": byDistrict((*engine.Engine).PowerConsumptionByDistrict),
	"revenue-by-district":     byDistrict((*engine.Engine).RevenueByDistrict),
	"total-revenue":           scalar((*engine.Engine).TotalRevenue),
	"revenue-loss":            scalar((*engine.Engine).RevenueLoss),
	"revenue-per-hour":        withAvailability((*engine.Engine).RevenuePerHour),
	"tariff-plan": func(_ context.Context, e *engine.Engine) (any, error) {
		return e.TariffPlan(), nil
	},
	"tariff-losses":        scalar((*engine.Engine).TariffLosses),
	"untapped-revenue":     withAvailability((*engine.Engine).UntappedRevenue),
	"customer-breakdown":   scalar((*engine.Engine).CustomerBreakdown),
	"finance-month":        scalar((*engine.Engine).FinancePerformanceByMonth),
	"finance-day":          scalar((*engine.Engine).FinancePerformanceByDay),
	"finance-cards":        scalar((*engine.Engine).FinanceCards),
	"load-profile":         scalar((*engine.Engine).LoadProfile),
	"load-profile-quarter": scalar((*engine.Engine).LoadProfileQuarterHour),
	"daily-voltage":        scalar((*engine.Engine).DailyVoltage),
	"daily-load":           scalar((*engine.Engine).DailyLoad),
	"daily-pf":             scalar((*engine.Engine).DailyPowerFactor),
	"energy-by-month":      scalar((*engine.Engine).EnergyByMonth),
	"dt-status":            scalar((*engine.Engine).DTStatus),
	"sites-monitored":      scalar((*engine.Engine).SitesMonitored),
	"average-load":         scalar((*engine.Engine).AverageLoad),
	"device-consumption":   scalar((*engine.Engine).DeviceConsumption),
}

func metricNames() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupMetric(name string) (metricFunc, error) {
	fn, ok := metrics[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	return fn, nil
}

func metricsCmd() *cobra.Command {
	var scope engine.Scope

	cmd := &cobra.Command{
		Use:   "metrics NAME",
		Short: "Compute a metric over the devices of a company/site scope",
		Long: fmt.Sprintf(`Compute a metric and print it as JSON.

Available metrics:
  %s`, strings.Join(metricNames(), "\n  ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := lookupMetric(args[0])
			if err != nil {
				return err
			}

			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				e, err := engine.Open(cmd.Context(), b.Dependencies(), scope, cfg.Engine)
				if err != nil {
					return err
				}

				result, err := fn(cmd.Context(), e)
				if err != nil {
					return fmt.Errorf("computing %s: %w", args[0], err)
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().Int64SliceVar(&scope.Companies, "companies", nil, "Company IDs")
	cmd.Flags().Int64SliceVar(&scope.Sites, "sites", nil, "Site IDs")
	cmd.Flags().StringVar(&scope.Start, "start", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&scope.End, "end", "", "Window end date (YYYY-MM-DD, default today)")

	return cmd
}
