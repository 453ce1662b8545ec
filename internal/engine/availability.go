package engine

import (
	"context"
	"time"
)

// powered reports whether any phase carries voltage. Phases the meter did
// not report read as zero.
func powered(r Reading) bool {
	return r.VoltageA != 0 || r.VoltageB != 0 || r.VoltageC != 0
}

// deviceScan is the outcome of walking one device's voltage series
type deviceScan struct {
	activeMinutes  float64 // per day of span
	offlineMinutes float64 // total
	powerCuts      int
}

// scanDevice walks consecutive sample pairs of an ascending series.
// Time after a powered sample counts as active; an all-zero sample followed
// by a powered one is one power cut. A series of one sample has no pairs.
func scanDevice(rs []Reading) deviceScan {
	var s deviceScan
	if len(rs) < 2 {
		return s
	}

	for i := 0; i+1 < len(rs); i++ {
		cur, next := rs[i], rs[i+1]
		minutes := next.Timestamp.Sub(cur.Timestamp).Minutes()

		if powered(cur) {
			s.activeMinutes += minutes
			continue
		}
		s.offlineMinutes += minutes
		if powered(next) {
			s.powerCuts++
		}
	}

	// Whole days between first and last sample, at least one
	days := int(rs[len(rs)-1].Timestamp.Sub(rs[0].Timestamp) / (24 * time.Hour))
	if days > 0 {
		s.activeMinutes /= float64(days)
	}
	return s
}

// Availability runs the outage scan over every device. HoursPerDay is the
// mean daily active time across devices that reported at least one sample;
// PowerCuts is the total number of outage to restoration transitions.
func (e *Engine) Availability(ctx context.Context) (Availability, error) {
	grouped, err := e.fetchPartial(ctx, Ascending, ColVoltageA, ColVoltageB, ColVoltageC)
	if err != nil {
		return Availability{}, err
	}

	var (
		perDay  []float64
		cuts    int
		offline float64
	)
	for _, d := range e.devices {
		rs := grouped[d.ID]
		if len(rs) == 0 {
			continue
		}
		s := scanDevice(rs)
		perDay = append(perDay, s.activeMinutes)
		cuts += s.powerCuts
		offline += s.offlineMinutes
	}

	grid := 0.0
	for _, m := range perDay {
		grid += m / 60
	}

	return Availability{
		HoursPerDay:  round2(mean(perDay) / 60),
		PowerCuts:    cuts,
		GridHours:    round2(grid),
		OfflineHours: round2(offline / 60),
		HadData:      e.coverage(grouped),
	}, nil
}

// SitesMonitored counts devices with at least one powered sample and
// devices with at least one fully dead sample in the window.
func (e *Engine) SitesMonitored(ctx context.Context) (SiteMonitoring, error) {
	grouped, err := e.fetchPartial(ctx, Ascending, ColVoltageA, ColVoltageB, ColVoltageC)
	if err != nil {
		return SiteMonitoring{}, err
	}

	var out SiteMonitoring
	for _, d := range e.devices {
		var active, offline bool
		for _, r := range grouped[d.ID] {
			if powered(r) {
				active = true
			} else {
				offline = true
			}
			if active && offline {
				break
			}
		}
		if active {
			out.Active++
		}
		if offline {
			out.Offline++
		}
	}
	return out, nil
}
