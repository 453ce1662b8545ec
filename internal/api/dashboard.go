package api

import (
	"context"
	"net/http"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"golang.org/x/sync/errgroup"
)

func (s *Server) handleRevenueLoss(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	loss, err := e.RevenueLoss(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, keyValueChart{
		Total: loss.Total(),
		Dataset: []keyValue{
			{Key: "billing", Value: loss.Billing()},
			{Key: "collection", Value: loss.Collection()},
			{Key: "downtime", Value: loss.Downtime()},
		},
	})
}

func (s *Server) handleEnergyChart(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	months, err := e.EnergyByMonth(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dataset[engine.BucketValue]{Dataset: months})
}

type dashboardCards struct {
	GridHours       float64 `json:"gridHours"`
	TariffPlan      float64 `json:"tariffPlan"`
	NoOfOutages     int     `json:"noOfOutages"`
	Downtime        float64 `json:"downtime"`
	RevenuePerHour  float64 `json:"revenuePerHour"`
	UntappedRevenue float64 `json:"untappedRevenue"`
}

func (s *Server) handleDashboardCards(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	avail, err := e.Availability(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	cards := dashboardCards{
		GridHours:   avail.GridHours,
		TariffPlan:  e.TariffPlan(),
		NoOfOutages: avail.PowerCuts,
		Downtime:    avail.OfflineHours,
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		cards.RevenuePerHour, err = e.RevenuePerHour(ctx, avail.HoursPerDay)
		return err
	})
	g.Go(func() (err error) {
		cards.UntappedRevenue, err = e.UntappedRevenue(ctx, avail.HoursPerDay)
		return err
	})
	if err := g.Wait(); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleDTStatus(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	status, err := e.DTStatus(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]engine.DTStatus{"dataset": status})
}

func (s *Server) handleDailyVoltage(w http.ResponseWriter, r *http.Request) {
	s.phaseChart(w, r, (*engine.Engine).DailyVoltage)
}

func (s *Server) handleDailyPowerFactor(w http.ResponseWriter, r *http.Request) {
	s.phaseChart(w, r, (*engine.Engine).DailyPowerFactor)
}

func (s *Server) handleDailyLoad(w http.ResponseWriter, r *http.Request) {
	s.phaseChart(w, r, (*engine.Engine).DailyLoad)
}

func (s *Server) phaseChart(w http.ResponseWriter, r *http.Request, compute func(*engine.Engine, context.Context) ([]engine.PhaseRow, error)) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	rows, err := compute(e, r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dataset[engine.PhaseRow]{Dataset: rows})
}
