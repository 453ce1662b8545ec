package api

import (
	"context"
	"net/http"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"golang.org/x/sync/errgroup"
)

type keyValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type keyValueChart struct {
	Total   float64    `json:"total"`
	Dataset []keyValue `json:"dataset"`
}

type dataset[T any] struct {
	Dataset []T `json:"dataset"`
}

type operationsCards struct {
	TotalConsumption float64  `json:"total_consumption"`
	CurrentLoad      float64  `json:"current_load"`
	AvgAvailability  float64  `json:"avg_availability"`
	PowerCuts        int      `json:"power_cuts"`
	OverloadedDTs    int      `json:"overloaded_dts"`
	Complete         bool     `json:"complete"`
	Anomalies        []string `json:"anomalies,omitempty"`
}

func (s *Server) handleOperationsCards(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var (
		consumption, load engine.Metric
		avail             engine.Availability
		overloaded        engine.Count
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		consumption, err = e.TotalConsumption(ctx)
		return err
	})
	g.Go(func() (err error) {
		load, err = e.CurrentLoad(ctx)
		return err
	})
	g.Go(func() (err error) {
		avail, err = e.Availability(ctx)
		return err
	})
	g.Go(func() (err error) {
		overloaded, err = e.OverloadedDevices(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, operationsCards{
		TotalConsumption: consumption.Value,
		CurrentLoad:      load.Value,
		AvgAvailability:  avail.HoursPerDay,
		PowerCuts:        avail.PowerCuts,
		OverloadedDTs:    overloaded.Value,
		Complete:         consumption.Complete() && load.Complete(),
		Anomalies:        consumption.Anomalies,
	})
}

func (s *Server) handleSitesMonitored(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	monitored, err := e.SitesMonitored(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	total, err := s.registry.CountSites(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, keyValueChart{
		Total: float64(total),
		Dataset: []keyValue{
			{Key: "active", Value: float64(monitored.Active)},
			{Key: "offline", Value: float64(monitored.Offline)},
		},
	})
}

func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var (
		points []engine.ProfilePoint
		err    error
	)
	switch r.URL.Query().Get("granularity") {
	case "", "hour":
		points, err = e.LoadProfile(r.Context())
	case "quarter":
		points, err = e.LoadProfileQuarterHour(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "granularity must be hour or quarter")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dataset[engine.ProfilePoint]{Dataset: points})
}

func (s *Server) handlePowerConsumptionChart(w http.ResponseWriter, r *http.Request) {
	s.districtChart(w, r, (*engine.Engine).PowerConsumptionByDistrict)
}

// districtChart renders a per-district bar chart over the districts of the scope's sites
func (s *Server) districtChart(w http.ResponseWriter, r *http.Request, compute func(*engine.Engine, context.Context, []string) (engine.DistrictTotals, error)) {
	e, scope, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	districts, err := s.registry.Districts(r.Context(), scope.Companies, scope.Sites)
	if err != nil {
		respondErr(w, err)
		return
	}

	totals, err := compute(e, r.Context(), districts)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dataset[engine.DistrictRow]{Dataset: totals.Rows()})
}
