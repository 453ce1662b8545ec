package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const readingsTable = "smart_device_readings"

// DB is the subset of *pgxpool.Pool the readings store uses
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Readings serves the smart_device_readings table
type Readings struct {
	db DB
}

// NewReadings creates a readings store over a pool
func NewReadings(db DB) *Readings {
	return &Readings{db: db}
}

// Fetch returns the requested channels of the devices' readings dated within
// the window, skipping rows where any requested channel is NULL. A partial
// query keeps rows with one non-NULL channel and flags the rest as missing.
func (r *Readings) Fetch(ctx context.Context, q engine.Query) ([]engine.Reading, error) {
	if len(q.DeviceIDs) == 0 {
		return nil, nil
	}

	sql, args, err := readingsQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	out := []engine.Reading{}
	for rows.Next() {
		var reading engine.Reading
		vals := make([]*float64, len(q.Columns))
		dest := []any{&reading.DeviceID, &reading.Timestamp, &reading.Date}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		for i, c := range q.Columns {
			if vals[i] == nil {
				reading.Missing.Add(c)
				continue
			}
			reading.Set(c, *vals[i])
		}
		out = append(out, reading)
	}
	return out, rows.Err()
}

func readingsQuery(q engine.Query) (string, []any, error) {
	cols := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		if _, ok := engine.ParseColumn(string(c)); !ok {
			return "", nil, fmt.Errorf("unknown column %q", c)
		}
		cols = append(cols, string(c))
	}

	var b strings.Builder
	b.WriteString("SELECT device_serial, timestamp, date")
	for _, c := range cols {
		b.WriteString(", " + c)
	}
	b.WriteString(" FROM " + readingsTable)
	b.WriteString(" WHERE device_serial = ANY($1) AND date BETWEEN $2 AND $3")
	if len(cols) > 0 {
		conds := lo.Map(cols, func(c string, _ int) string { return c + " IS NOT NULL" })
		sep := " AND "
		if q.Partial {
			sep = " OR "
		}
		b.WriteString(" AND (" + strings.Join(conds, sep) + ")")
	}
	b.WriteString(" ORDER BY device_serial, timestamp")
	if q.Order == engine.Descending {
		b.WriteString(" DESC")
	}

	return b.String(), []any{q.DeviceIDs, q.Window.Start, q.Window.End}, nil
}

// WriteSamples bulk-loads samples with COPY. Channels a sample does not list are NULL.
func (r *Readings) WriteSamples(ctx context.Context, samples []engine.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	columns := append([]string{"device_serial", "timestamp", "date"},
		lo.Map(engine.AllColumns, func(c engine.Column, _ int) string { return string(c) })...)

	rows := lo.Map(samples, func(s engine.Sample, _ int) []any {
		date := s.Date
		if date.IsZero() {
			ts := s.Timestamp.UTC()
			date = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
		row := []any{s.DeviceID, s.Timestamp, date}
		for _, c := range engine.AllColumns {
			if lo.Contains(s.Columns, c) {
				row = append(row, s.Value(c))
			} else {
				row = append(row, nil)
			}
		}
		return row
	})

	n, err := r.db.CopyFrom(ctx, pgx.Identifier{readingsTable}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying readings: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copied %d of %d readings", n, len(rows))
	}
	return nil
}

// EnsureSchema creates the readings table when it does not exist yet
func (r *Readings) EnsureSchema(ctx context.Context) error {
	channels := lo.Map(engine.AllColumns, func(c engine.Column, _ int) string {
		return "\t" + string(c) + " DOUBLE PRECISION"
	})

	ddl := `CREATE TABLE IF NOT EXISTS ` + readingsTable + ` (
	id BIGSERIAL PRIMARY KEY,
	device_serial VARCHAR(255),
	timestamp TIMESTAMPTZ,
	date DATE,
` + strings.Join(channels, ",\n") + `
);
CREATE INDEX IF NOT EXISTS idx_readings_serial_date ON ` + readingsTable + ` (device_serial, date)`

	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating readings table: %w", err)
	}
	return nil
}
