package api

import (
	"net/http"

	"github.com/awaistahir/grid-analytics/internal/engine"
)

func (s *Server) handleFinanceRevenue(w http.ResponseWriter, r *http.Request) {
	s.districtChart(w, r, (*engine.Engine).RevenueByDistrict)
}

func (s *Server) handleFinancePerformance(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by != "" && by != string(engine.BucketMonth) && by != string(engine.BucketDay) {
		respondError(w, http.StatusBadRequest, "by must be month or day")
		return
	}

	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var (
		rows []engine.FinanceRow
		err  error
	)
	if by == string(engine.BucketDay) {
		rows, err = e.FinancePerformanceByDay(r.Context())
	} else {
		rows, err = e.FinancePerformanceByMonth(r.Context())
	}
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dataset[engine.FinanceRow]{Dataset: rows})
}

func (s *Server) handleCustomerBreakdown(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	breakdown, err := e.CustomerBreakdown(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, keyValueChart{
		Total: float64(breakdown.Paying + breakdown.Defaulting),
		Dataset: []keyValue{
			{Key: "paying", Value: float64(breakdown.Paying)},
			{Key: "defaulting", Value: float64(breakdown.Defaulting)},
		},
	})
}

func (s *Server) handleFinanceCards(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	cards, err := e.FinanceCards(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}
