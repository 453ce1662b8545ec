package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/samber/lo"
)

// WriteSamples upserts readings into the local readings table. Channels a
// sample does not list are stored as NULL.
func (s *Store) WriteSamples(ctx context.Context, samples []engine.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	cols := lo.Map(engine.AllColumns, func(c engine.Column, _ int) string { return string(c) })
	query := `INSERT OR REPLACE INTO smart_device_readings (device_serial, timestamp, date, ` +
		strings.Join(cols, ", ") + `) VALUES (` + placeholders(len(cols)+3) + `)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		date := sm.Date
		if date.IsZero() {
			date = sm.Timestamp
		}

		args := []any{sm.DeviceID, formatTimestamp(sm.Timestamp), date.Format(engine.DateFormat)}
		for _, c := range engine.AllColumns {
			v := sql.NullFloat64{}
			if lo.Contains(sm.Columns, c) {
				v = sql.NullFloat64{Float64: sm.Value(c), Valid: true}
			}
			args = append(args, v)
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("writing reading %s@%s: %w", sm.DeviceID, sm.Timestamp, err)
		}
	}

	return tx.Commit()
}

// Fetch returns the requested channels of the devices' readings dated within
// the window. Rows missing any requested channel are skipped, or for a
// partial query flagged in Reading.Missing.
func (s *Store) Fetch(ctx context.Context, q engine.Query) ([]engine.Reading, error) {
	if len(q.DeviceIDs) == 0 {
		return nil, nil
	}

	query, args, err := readingsQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	out := []engine.Reading{}
	for rows.Next() {
		var (
			r        engine.Reading
			ts, date string
		)
		vals := make([]sql.NullFloat64, len(q.Columns))
		dest := []any{&r.DeviceID, &ts, &date}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		if r.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		for i, c := range q.Columns {
			if !vals[i].Valid {
				r.Missing.Add(c)
				continue
			}
			r.Set(c, vals[i].Float64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func readingsQuery(q engine.Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT device_serial, timestamp, date")
	for _, c := range q.Columns {
		if _, ok := engine.ParseColumn(string(c)); !ok {
			return "", nil, fmt.Errorf("unknown column %q", c)
		}
		b.WriteString(", ")
		b.WriteString(string(c))
	}

	b.WriteString(" FROM smart_device_readings WHERE device_serial IN (")
	b.WriteString(placeholders(len(q.DeviceIDs)))
	b.WriteString(") AND date BETWEEN ? AND ?")
	if len(q.Columns) > 0 {
		b.WriteString(" AND ")
		b.WriteString(notNullFilter(q))
	}

	b.WriteString(" ORDER BY device_serial, timestamp")
	if q.Order == engine.Descending {
		b.WriteString(" DESC")
	}

	args := append(lo.ToAnySlice(q.DeviceIDs), q.Window.StartDate(), q.Window.EndDate())
	return b.String(), args, nil
}

// notNullFilter requires every requested column, or any one of them for a partial query
func notNullFilter(q engine.Query) string {
	conds := lo.Map(q.Columns, func(c engine.Column, _ int) string { return string(c) + " IS NOT NULL" })
	if q.Partial {
		return "(" + strings.Join(conds, " OR ") + ")"
	}
	return strings.Join(conds, " AND ")
}
