package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/samber/lo"
)

// ErrNotFound is returned when a looked up record does not exist
var ErrNotFound = errors.New("not found")

// Company owns sites
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Site is a metered location within a district
type Site struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
	District  string `json:"district"`
}

// Tariff is a named price per unit of energy
type Tariff struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// DeviceRecord is a device as registered, before its site and tariff are joined in
type DeviceRecord struct {
	Serial        string  `json:"serial"`
	Name          string  `json:"name"`
	SiteID        int64   `json:"site_id"`
	TariffID      int64   `json:"tariff_id"`
	AssetCapacity float64 `json:"asset_capacity"`
}

// SaveCompany saves or updates a company
func (s *Store) SaveCompany(ctx context.Context, c Company) error {
	query := `INSERT OR REPLACE INTO companies (id, name) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.Name); err != nil {
		return fmt.Errorf("saving company %d: %w", c.ID, err)
	}
	return nil
}

// SaveSite saves or updates a site
func (s *Store) SaveSite(ctx context.Context, site Site) error {
	query := `INSERT OR REPLACE INTO sites (id, company_id, name, district) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, site.ID, site.CompanyID, site.Name, site.District); err != nil {
		return fmt.Errorf("saving site %d: %w", site.ID, err)
	}
	return nil
}

// SaveTariff saves or updates a tariff
func (s *Store) SaveTariff(ctx context.Context, t Tariff) error {
	query := `INSERT OR REPLACE INTO tariffs (id, name, price) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Price); err != nil {
		return fmt.Errorf("saving tariff %d: %w", t.ID, err)
	}
	return nil
}

// SaveDevice saves or updates a device. A zero TariffID leaves the device unpriced.
func (s *Store) SaveDevice(ctx context.Context, d DeviceRecord) error {
	var tariff sql.NullInt64
	if d.TariffID != 0 {
		tariff = sql.NullInt64{Int64: d.TariffID, Valid: true}
	}

	query := `INSERT OR REPLACE INTO devices (serial, name, site_id, tariff_id, asset_capacity)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, d.Serial, d.Name, d.SiteID, tariff, d.AssetCapacity); err != nil {
		return fmt.Errorf("saving device %s: %w", d.Serial, err)
	}
	return nil
}

// DeleteDevice removes a device from the registry; its readings are kept
func (s *Store) DeleteDevice(ctx context.Context, serial string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE serial = ?`, serial)
	return err
}

// GetSites lists every site ordered by id
func (s *Store) GetSites(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, company_id, name, district FROM sites ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := []Site{}
	for rows.Next() {
		var site Site
		if err := rows.Scan(&site.ID, &site.CompanyID, &site.Name, &site.District); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// CountSites returns the number of registered sites
func (s *Store) CountSites(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&n)
	return n, err
}

// Districts lists the distinct districts of the sites matching the filters.
// Empty filters match every site.
func (s *Store) Districts(ctx context.Context, companies, sites []int64) ([]string, error) {
	where, args := siteFilter(companies, sites)
	query := `SELECT DISTINCT district FROM sites s` + where + ` ORDER BY district`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	districts := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

const deviceSelect = `SELECT d.serial, d.name, d.site_id, s.company_id, s.district, d.asset_capacity, COALESCE(t.price, 0)
	FROM devices d
	JOIN sites s ON s.id = d.site_id
	LEFT JOIN tariffs t ON t.id = d.tariff_id`

// Resolve returns the devices under the given companies and sites, ordered by
// serial. Empty filters match everything.
func (s *Store) Resolve(ctx context.Context, companies, sites []int64) ([]engine.Device, error) {
	where, args := siteFilter(companies, sites)

	rows, err := s.db.QueryContext(ctx, deviceSelect+where+` ORDER BY d.serial`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []engine.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Device retrieves a single device by serial
func (s *Store) Device(ctx context.Context, serial string) (*engine.Device, error) {
	row := s.db.QueryRowContext(ctx, deviceSelect+` WHERE d.serial = ?`, serial)

	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", serial, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (engine.Device, error) {
	var d engine.Device
	err := row.Scan(&d.ID, &d.Name, &d.SiteID, &d.CompanyID, &d.District, &d.AssetCapacity, &d.TariffPrice)
	return d, err
}

// siteFilter builds the WHERE clause over the sites table aliased as s
func siteFilter(companies, sites []int64) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(companies) > 0 {
		clauses = append(clauses, "s.company_id IN ("+placeholders(len(companies))+")")
		args = append(args, lo.ToAnySlice(companies)...)
	}
	if len(sites) > 0 {
		clauses = append(clauses, "s.id IN ("+placeholders(len(sites))+")")
		args = append(args, lo.ToAnySlice(sites)...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
