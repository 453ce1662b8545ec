package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timestampFormat sorts lexically in time order; timestamps are stored in UTC
const timestampFormat = "2006-01-02 15:04:05.000"

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY,
		company_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		district TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (company_id) REFERENCES companies(id)
	);

	CREATE TABLE IF NOT EXISTS tariffs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS devices (
		serial TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		site_id INTEGER NOT NULL,
		tariff_id INTEGER,
		asset_capacity REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (site_id) REFERENCES sites(id),
		FOREIGN KEY (tariff_id) REFERENCES tariffs(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		amount_bought REAL NOT NULL DEFAULT 0,
		amount_billed REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (site_id) REFERENCES sites(id)
	);

	CREATE TABLE IF NOT EXISTS smart_device_readings (
		device_serial TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		date TEXT NOT NULL,
		line_to_neutral_voltage_phase_a REAL,
		line_to_neutral_voltage_phase_b REAL,
		line_to_neutral_voltage_phase_c REAL,
		import_active_energy_overall_total REAL,
		active_power_overall_total REAL,
		analog_input_channel_1 REAL,
		analog_input_channel_2 REAL,
		power_factor_overall_phase_a REAL,
		power_factor_overall_phase_b REAL,
		power_factor_overall_phase_c REAL,
		active_power_overall_phase_a REAL,
		active_power_overall_phase_b REAL,
		active_power_overall_phase_c REAL,
		PRIMARY KEY (device_serial, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_sites_company ON sites(company_id);
	CREATE INDEX IF NOT EXISTS idx_devices_site ON devices(site_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_site_date ON transactions(site_id, date);
	CREATE INDEX IF NOT EXISTS idx_readings_date ON smart_device_readings(date, device_serial);
	`

	_, err := s.db.Exec(schema)
	return err
}

// placeholders returns "?, ?, ..." with n markers
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampFormat, s, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
