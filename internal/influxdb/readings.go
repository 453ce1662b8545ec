package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/samber/lo"
)

// Readings serves readings stored as one field per channel, tagged by device serial
type Readings struct {
	querier     Querier
	bucket      string
	measurement string
}

// NewReadings creates a readings store over a bucket and measurement
func NewReadings(q Querier, bucket, measurement string) *Readings {
	return &Readings{querier: q, bucket: bucket, measurement: measurement}
}

// Fetch returns the requested channels of the devices' readings within the
// window's calendar days. Points missing any requested field are skipped,
// or for a partial query flagged in Reading.Missing.
func (r *Readings) Fetch(ctx context.Context, q engine.Query) ([]engine.Reading, error) {
	if len(q.DeviceIDs) == 0 {
		return nil, nil
	}

	flux, err := r.fluxQuery(q)
	if err != nil {
		return nil, err
	}

	records, err := r.querier.QueryFlux(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}

	out := make([]engine.Reading, 0, len(records))
	for _, rec := range records {
		reading, err := decodeRecord(rec, q.Columns, q.Partial)
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	return out, nil
}

func (r *Readings) fluxQuery(q engine.Query) (string, error) {
	for _, c := range q.Columns {
		if _, ok := engine.ParseColumn(string(c)); !ok {
			return "", fmt.Errorf("unknown column %q", c)
		}
	}

	quoted := func(s string) string { return strconv.Quote(s) }
	fields := lo.Map(q.Columns, func(c engine.Column, _ int) string {
		return "r._field == " + quoted(string(c))
	})
	exists := lo.Map(q.Columns, func(c engine.Column, _ int) string {
		return "exists r." + string(c)
	})
	devices := lo.Map(q.DeviceIDs, func(id string, _ int) string { return quoted(id) })

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", quoted(r.bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n",
		q.Window.Start.Format(time.RFC3339), q.Window.Until().Format(time.RFC3339))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", quoted(r.measurement))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => contains(value: r.%s, set: [%s]))\n", deviceTag, strings.Join(devices, ", "))
	if len(fields) > 0 {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(fields, " or "))
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	if len(exists) > 0 {
		join := " and "
		if q.Partial {
			join = " or "
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(exists, join))
	}
	b.WriteString("  |> group()\n")
	fmt.Fprintf(&b, "  |> sort(columns: [%q, \"_time\"], desc: %t)\n", deviceTag, q.Order == engine.Descending)
	return b.String(), nil
}

func decodeRecord(rec map[string]any, cols []engine.Column, partial bool) (engine.Reading, error) {
	var r engine.Reading

	id, ok := rec[deviceTag].(string)
	if !ok {
		return r, fmt.Errorf("record without %s tag", deviceTag)
	}
	ts, ok := rec["_time"].(time.Time)
	if !ok {
		return r, fmt.Errorf("record for %s without _time", id)
	}

	r.DeviceID = id
	r.Timestamp = ts
	utc := ts.UTC()
	r.Date = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	for _, c := range cols {
		raw := rec[string(c)]
		if raw == nil && partial {
			r.Missing.Add(c)
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			return r, fmt.Errorf("%s@%s field %s: %w", id, ts.Format(time.RFC3339), c, err)
		}
		r.Set(c, v)
	}
	return r, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Writer writes samples as points of one measurement
type Writer struct {
	points      pointWriter
	measurement string
}

// NewWriter creates a writer into the client's bucket
func NewWriter(c *Client) *Writer {
	return &Writer{points: c.writeAPI, measurement: c.config.Measurement}
}

// WriteSamples writes each sample as a point carrying only its listed channels
func (w *Writer) WriteSamples(ctx context.Context, samples []engine.Sample) error {
	points := lo.FilterMap(samples, func(s engine.Sample, _ int) (*write.Point, bool) {
		return samplePoint(w.measurement, s), len(s.Columns) > 0
	})
	if len(points) == 0 {
		return nil
	}

	if err := w.points.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing %d points: %w", len(points), err)
	}
	return nil
}

func samplePoint(measurement string, s engine.Sample) *write.Point {
	fields := make(map[string]interface{}, len(s.Columns))
	for _, c := range s.Columns {
		fields[string(c)] = s.Value(c)
	}

	return write.NewPoint(
		measurement,
		map[string]string{deviceTag: s.DeviceID},
		fields,
		s.Timestamp,
	)
}
