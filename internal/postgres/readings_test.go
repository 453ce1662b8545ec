package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// fakeDB records COPY input and DDL; queries are not supported
type fakeDB struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
	ddl     string
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	f.table = table
	f.columns = columns
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, vals)
	}
	return int64(len(f.rows)), src.Err()
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.ddl = sql
	return pgconn.CommandTag{}, nil
}

func TestReadingsQuery(t *testing.T) {
	window := engine.Window{Start: day0, End: day0.AddDate(0, 0, 6)}

	sql, args, err := readingsQuery(engine.Query{
		DeviceIDs: []string{"a", "b"},
		Window:    window,
		Order:     engine.Descending,
		Columns:   []engine.Column{engine.ColPowerTotal, engine.ColAnalog1},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT device_serial, timestamp, date, active_power_overall_total, analog_input_channel_1"+
			" FROM smart_device_readings WHERE device_serial = ANY($1) AND date BETWEEN $2 AND $3"+
			" AND (active_power_overall_total IS NOT NULL AND analog_input_channel_1 IS NOT NULL)"+
			" ORDER BY device_serial, timestamp DESC",
		sql)
	assert.Equal(t, []any{[]string{"a", "b"}, window.Start, window.End}, args)

	_, _, err = readingsQuery(engine.Query{Columns: []engine.Column{"x; drop"}})
	assert.Error(t, err)
}

func TestReadingsQuery_Partial(t *testing.T) {
	sql, _, err := readingsQuery(engine.Query{
		DeviceIDs: []string{"a"},
		Window:    engine.Window{Start: day0, End: day0},
		Columns:   []engine.Column{engine.ColVoltageA, engine.ColVoltageB, engine.ColVoltageC},
		Partial:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, sql, " AND (line_to_neutral_voltage_phase_a IS NOT NULL"+
		" OR line_to_neutral_voltage_phase_b IS NOT NULL OR line_to_neutral_voltage_phase_c IS NOT NULL)")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY device_serial, timestamp"))
}

func TestFetchWithoutDevices(t *testing.T) {
	rows, err := NewReadings(&fakeDB{}).Fetch(context.Background(), engine.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteSamples(t *testing.T) {
	db := &fakeDB{}
	r := NewReadings(db)

	ts := day0.Add(13 * time.Hour)
	err := r.WriteSamples(context.Background(), []engine.Sample{{
		Reading: engine.Reading{DeviceID: "a", Timestamp: ts, ImportEnergy: 42},
		Columns: []engine.Column{engine.ColImportEnergy},
	}})
	require.NoError(t, err)

	assert.Equal(t, pgx.Identifier{"smart_device_readings"}, db.table)
	require.Len(t, db.columns, 3+len(engine.AllColumns))
	require.Len(t, db.rows, 1)

	row := db.rows[0]
	assert.Equal(t, "a", row[0])
	assert.Equal(t, ts, row[1])
	assert.Equal(t, day0, row[2], "date defaults to the timestamp's day")

	for i, col := range db.columns[3:] {
		if col == string(engine.ColImportEnergy) {
			assert.Equal(t, 42.0, row[3+i])
		} else {
			assert.Nil(t, row[3+i], col)
		}
	}

	require.NoError(t, r.WriteSamples(context.Background(), nil))
	assert.Len(t, db.rows, 1, "nothing copied for an empty batch")
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewReadings(db).EnsureSchema(context.Background()))

	assert.Contains(t, db.ddl, "CREATE TABLE IF NOT EXISTS smart_device_readings")
	for _, c := range engine.AllColumns {
		assert.Contains(t, db.ddl, string(c)+" DOUBLE PRECISION")
	}
}
