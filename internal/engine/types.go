package engine

import (
	"slices"
	"time"
)

// Column names a reading channel. Values match the smart_device_readings
// table so SQL stores can use them directly.
type Column string

const (
	ColVoltageA     Column = "line_to_neutral_voltage_phase_a"
	ColVoltageB     Column = "line_to_neutral_voltage_phase_b"
	ColVoltageC     Column = "line_to_neutral_voltage_phase_c"
	ColPowerTotal   Column = "active_power_overall_total"
	ColPowerA       Column = "active_power_overall_phase_a"
	ColPowerB       Column = "active_power_overall_phase_b"
	ColPowerC       Column = "active_power_overall_phase_c"
	ColPowerFactorA Column = "power_factor_overall_phase_a"
	ColPowerFactorB Column = "power_factor_overall_phase_b"
	ColPowerFactorC Column = "power_factor_overall_phase_c"
	ColImportEnergy Column = "import_active_energy_overall_total"
	ColAnalog1      Column = "analog_input_channel_1"
	ColAnalog2      Column = "analog_input_channel_2"
)

// AllColumns lists every measurement channel in table order.
var AllColumns = []Column{
	ColVoltageA, ColVoltageB, ColVoltageC,
	ColImportEnergy, ColPowerTotal,
	ColAnalog1, ColAnalog2,
	ColPowerFactorA, ColPowerFactorB, ColPowerFactorC,
	ColPowerA, ColPowerB, ColPowerC,
}

// ParseColumn returns the channel named s, if it is one
func ParseColumn(s string) (Column, bool) {
	c := Column(s)
	return c, slices.Contains(AllColumns, c)
}

// ColumnSet is a set of channels, one bit per entry of AllColumns
type ColumnSet uint16

func columnBit(c Column) ColumnSet {
	i := slices.Index(AllColumns, c)
	if i < 0 {
		return 0
	}
	return 1 << i
}

// Has reports whether c is in the set
func (s ColumnSet) Has(c Column) bool {
	b := columnBit(c)
	return b != 0 && s&b != 0
}

// Add puts c in the set
func (s *ColumnSet) Add(c Column) {
	*s |= columnBit(c)
}

// Reading is one row of multi-phase telemetry for a device
type Reading struct {
	DeviceID  string
	Timestamp time.Time
	Date      time.Time // calendar date the row is filed under

	VoltageA float64
	VoltageB float64
	VoltageC float64

	ActivePowerTotal float64
	ActivePowerA     float64
	ActivePowerB     float64
	ActivePowerC     float64

	PowerFactorA float64
	PowerFactorB float64
	PowerFactorC float64

	ImportEnergy float64 // cumulative counter, kWh

	Analog1 float64
	Analog2 float64

	// Missing holds requested channels that were NULL in the store. Their
	// values read as 0. Only partial queries return such rows.
	Missing ColumnSet
}

// Has reports whether channel c carried a value
func (r Reading) Has(c Column) bool {
	return !r.Missing.Has(c)
}

// Value returns the channel named by c.
func (r Reading) Value(c Column) float64 {
	switch c {
	case ColVoltageA:
		return r.VoltageA
	case ColVoltageB:
		return r.VoltageB
	case ColVoltageC:
		return r.VoltageC
	case ColPowerTotal:
		return r.ActivePowerTotal
	case ColPowerA:
		return r.ActivePowerA
	case ColPowerB:
		return r.ActivePowerB
	case ColPowerC:
		return r.ActivePowerC
	case ColPowerFactorA:
		return r.PowerFactorA
	case ColPowerFactorB:
		return r.PowerFactorB
	case ColPowerFactorC:
		return r.PowerFactorC
	case ColImportEnergy:
		return r.ImportEnergy
	case ColAnalog1:
		return r.Analog1
	case ColAnalog2:
		return r.Analog2
	}
	return 0
}

// Set assigns v to the channel named by c. Unknown columns are ignored.
func (r *Reading) Set(c Column, v float64) {
	switch c {
	case ColVoltageA:
		r.VoltageA = v
	case ColVoltageB:
		r.VoltageB = v
	case ColVoltageC:
		r.VoltageC = v
	case ColPowerTotal:
		r.ActivePowerTotal = v
	case ColPowerA:
		r.ActivePowerA = v
	case ColPowerB:
		r.ActivePowerB = v
	case ColPowerC:
		r.ActivePowerC = v
	case ColPowerFactorA:
		r.PowerFactorA = v
	case ColPowerFactorB:
		r.PowerFactorB = v
	case ColPowerFactorC:
		r.PowerFactorC = v
	case ColImportEnergy:
		r.ImportEnergy = v
	case ColAnalog1:
		r.Analog1 = v
	case ColAnalog2:
		r.Analog2 = v
	}
}

// Sample is a reading as written by an importer: only Columns carry values,
// every other channel is stored as missing.
type Sample struct {
	Reading
	Columns []Column
}

// Device holds the static attributes of a metering endpoint
type Device struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SiteID        int64   `json:"site_id"`
	CompanyID     int64   `json:"company_id"`
	District      string  `json:"district"`
	AssetCapacity float64 `json:"asset_capacity"` // kW
	TariffPrice   float64 `json:"tariff_price"`
}

// Metric is a scalar result plus which devices actually had samples.
// A zero Value with HadData all false means "no data", not "confirmed zero".
type Metric struct {
	Value     float64         `json:"value"`
	HadData   map[string]bool `json:"had_data"`
	Anomalies []string        `json:"anomalies,omitempty"` // devices whose counter went backwards
}

// Complete reports whether every device contributed samples.
func (m Metric) Complete() bool {
	return allTrue(m.HadData)
}

// Count is an integer result with per-device coverage
type Count struct {
	Value   int             `json:"value"`
	HadData map[string]bool `json:"had_data"`
}

// Availability summarizes the outage scan over every device
type Availability struct {
	HoursPerDay  float64         `json:"hours_per_day"`
	PowerCuts    int             `json:"power_cuts"`
	GridHours    float64         `json:"grid_hours"`
	OfflineHours float64         `json:"offline_hours"`
	HadData      map[string]bool `json:"had_data"`
}

// DistrictRow is one bar of a per-district chart
type DistrictRow struct {
	District string  `json:"district"`
	Value    float64 `json:"value"`
}

// DistrictTotals buckets a per-device quantity by district
type DistrictTotals struct {
	Totals  map[string]float64 `json:"totals"`
	HadData map[string]bool    `json:"had_data"`
}

// Rows returns the totals sorted by district, rounded to 2 decimals.
func (d DistrictTotals) Rows() []DistrictRow {
	rows := make([]DistrictRow, 0, len(d.Totals))
	for _, k := range sortedKeys(d.Totals) {
		rows = append(rows, DistrictRow{District: k, Value: round2(d.Totals[k])})
	}
	return rows
}

// RevenueLoss holds theoretical versus actual energy over the window
type RevenueLoss struct {
	TotalValue  float64         `json:"total_value"`
	Consumption float64         `json:"consumption"`
	HadData     map[string]bool `json:"had_data"`
}

// Billing is the theoretical energy at average load
func (r RevenueLoss) Billing() float64 { return r.TotalValue }

// Collection is the energy the counters recorded
func (r RevenueLoss) Collection() float64 { return r.Consumption }

// Downtime is the theoretical energy not recorded
func (r RevenueLoss) Downtime() float64 { return r.TotalValue - r.Consumption }

// Total is billing plus collection
func (r RevenueLoss) Total() float64 { return r.TotalValue + r.Consumption }

// CustomerBreakdown splits devices by consumption against the default threshold
type CustomerBreakdown struct {
	Paying     int             `json:"paying"`
	Defaulting int             `json:"defaulting"`
	HadData    map[string]bool `json:"had_data"`
}

// DeviceConsumption is the counter delta of one device with its tariff
type DeviceConsumption struct {
	DeviceID    string
	District    string
	TariffPrice float64
	Delta       float64
}

// BucketValue is one labelled bucket of a calendar series
type BucketValue struct {
	Bucket int     `json:"bucket"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// FinanceRow is one bucket of the ledger performance chart
type FinanceRow struct {
	Bucket int     `json:"bucket"`
	Label  string  `json:"label"`
	Bought float64 `json:"bought"`
	Billed float64 `json:"billed"`
}

// ProfilePoint is one bucket of the hour-of-day load histogram
type ProfilePoint struct {
	Hour   int     `json:"hour"`
	Minute int     `json:"minute"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// PhaseRow holds per-phase hour-of-day values summed across devices
type PhaseRow struct {
	Hour int     `json:"hour"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
	C    float64 `json:"c"`
}

// DTStatus is the latest transformer status card
type DTStatus struct {
	Percentage  float64 `json:"percentage"`
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
}

// SiteMonitoring counts devices seen powered and seen offline in the window
type SiteMonitoring struct {
	Active  int `json:"active"`
	Offline int `json:"offline"`
}
