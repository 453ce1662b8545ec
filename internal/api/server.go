package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
)

// Version is reported by /api/status
const Version = "1.0.0"

var errBadRequest = errors.New("bad request")

// Registry resolves devices and answers the site level questions dashboards ask
type Registry interface {
	engine.DeviceResolver
	Districts(ctx context.Context, companies, sites []int64) ([]string, error)
	CountSites(ctx context.Context) (int, error)
}

type Server struct {
	registry Registry
	readings engine.ReadingsStore
	ledger   engine.TransactionLedger
	cfg      engine.Config
	clock    clockwork.Clock
	timeout  time.Duration
}

// Option customizes a Server
type Option func(*Server)

// WithClock sets the clock used to default missing window ends
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func NewServer(registry Registry, readings engine.ReadingsStore, ledger engine.TransactionLedger, cfg engine.Config, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		readings: readings,
		ledger:   ledger,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	// CORS for the dashboard frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/operations", func(r chi.Router) {
			r.Get("/cards-data", s.handleOperationsCards)
			r.Get("/sites-monitored", s.handleSitesMonitored)
			r.Get("/profile-chart", s.handleProfileChart)
			r.Get("/power-consumption-chart", s.handlePowerConsumptionChart)
		})

		r.Route("/operations-dashboard", func(r chi.Router) {
			r.Get("/revenue-loss", s.handleRevenueLoss)
			r.Get("/energy-chart", s.handleEnergyChart)
			r.Get("/cards-data", s.handleDashboardCards)
			r.Get("/dt-status", s.handleDTStatus)
			r.Get("/average-daily-voltage", s.handleDailyVoltage)
			r.Get("/average-daily-pf", s.handleDailyPowerFactor)
			r.Get("/average-daily-load", s.handleDailyLoad)
		})

		r.Route("/finance", func(r chi.Router) {
			r.Get("/revenue", s.handleFinanceRevenue)
			r.Get("/performance", s.handleFinancePerformance)
			r.Get("/customer-breakdown", s.handleCustomerBreakdown)
			r.Get("/cards-data", s.handleFinanceCards)
		})
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": Version,
		"time":    s.clock.Now().UTC().Format(time.RFC3339),
	})
}

// parseScope reads the companies, sites, start_date and end_date query parameters
func parseScope(r *http.Request) (engine.Scope, error) {
	q := r.URL.Query()

	companies, err := parseIDs(q.Get("companies"))
	if err != nil {
		return engine.Scope{}, fmt.Errorf("%w: companies: %v", errBadRequest, err)
	}
	sites, err := parseIDs(q.Get("sites"))
	if err != nil {
		return engine.Scope{}, fmt.Errorf("%w: sites: %v", errBadRequest, err)
	}

	return engine.Scope{
		Companies: companies,
		Sites:     sites,
		Start:     q.Get("start_date"),
		End:       q.Get("end_date"),
	}, nil
}

// parseIDs parses a comma separated id list; empty means no filter
func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// engineFor builds an engine for the request's scope, writing the error
// response itself when it cannot.
func (s *Server) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, engine.Scope, bool) {
	scope, err := parseScope(r)
	if err != nil {
		respondErr(w, err)
		return nil, scope, false
	}

	e, err := engine.Open(r.Context(), engine.Dependencies{
		Readings: s.readings,
		Devices:  s.registry,
		Ledger:   s.ledger,
		Clock:    s.clock,
	}, scope, s.cfg)
	if err != nil {
		respondErr(w, err)
		return nil, scope, false
	}
	return e, scope, true
}

// statusFor maps request-level failures to 400 and everything else to 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrInvalidDateRange),
		errors.Is(err, engine.ErrNoDevicesLinked):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
