package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	win  = Window{Start: day0, End: day0.AddDate(0, 0, 30)}
)

// memReadings is an in-memory ReadingsStore
type memReadings struct {
	mu      sync.Mutex
	rows    []Reading
	queries []Query
	err     error
}

func (m *memReadings) Fetch(_ context.Context, q Query) ([]Reading, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	var out []Reading
	for _, r := range m.rows {
		if !slices.Contains(q.DeviceIDs, r.DeviceID) {
			continue
		}
		if !q.Window.ContainsDate(readingDate(r)) {
			continue
		}
		present := 0
		for _, c := range q.Columns {
			if r.Has(c) {
				present++
			}
		}
		if present < len(q.Columns) && (!q.Partial || present == 0) {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Reading) int {
		if q.Order == Descending {
			return b.Timestamp.Compare(a.Timestamp)
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (m *memReadings) add(rs ...Reading) *memReadings {
	m.rows = append(m.rows, rs...)
	return m
}

// energySeries builds hourly cumulative energy readings
func energySeries(deviceID string, start time.Time, values ...float64) []Reading {
	out := make([]Reading, len(values))
	for i, v := range values {
		out[i] = Reading{DeviceID: deviceID, Timestamp: start.Add(time.Duration(i) * time.Hour), ImportEnergy: v}
	}
	return out
}

// voltageSeries builds readings spaced by step with the given phase triples
func voltageSeries(deviceID string, start time.Time, step time.Duration, phases ...[3]float64) []Reading {
	out := make([]Reading, len(phases))
	for i, p := range phases {
		out[i] = Reading{
			DeviceID:  deviceID,
			Timestamp: start.Add(time.Duration(i) * step),
			VoltageA:  p[0],
			VoltageB:  p[1],
			VoltageC:  p[2],
		}
	}
	return out
}

// missing marks channels of r as NULL in the store
func missing(r Reading, cols ...Column) Reading {
	for _, c := range cols {
		r.Set(c, 0)
		r.Missing.Add(c)
	}
	return r
}

func powerAt(deviceID string, ts time.Time, kw float64) Reading {
	return Reading{DeviceID: deviceID, Timestamp: ts, ActivePowerTotal: kw}
}

func newTestEngine(store ReadingsStore, devices ...Device) *Engine {
	e, err := New(store, devices, win, DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}

// memResolver is an in-memory DeviceResolver
type memResolver struct {
	devices []Device
}

func (m memResolver) Resolve(_ context.Context, companies, sites []int64) ([]Device, error) {
	var out []Device
	for _, d := range m.devices {
		if len(companies) > 0 && !slices.Contains(companies, d.CompanyID) {
			continue
		}
		if len(sites) > 0 && !slices.Contains(sites, d.SiteID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m memResolver) Device(_ context.Context, id string) (*Device, error) {
	for _, d := range m.devices {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, errors.New("device not found")
}

// memLedger returns canned totals and records the sites it was asked for
type memLedger struct {
	totals map[Bucket]map[int]LedgerTotals
	sites  []int64
}

func (m *memLedger) SumByBucket(_ context.Context, siteIDs []int64, _ Window, bucket Bucket) (map[int]LedgerTotals, error) {
	m.sites = siteIDs
	return m.totals[bucket], nil
}
