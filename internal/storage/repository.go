package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/weatherosm/internal/device"
	"github.com/neexbeast/weatherosm/internal/weather"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for device preferences and published readings.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// readingData is the JSONB payload of a readings row.
type readingData struct {
	Weather *weather.WeatherRecord `json:"weather"`
	Summary weather.Summary        `json:"summary"`
}

// GetPreferences retrieves the preferences of a device.
// Returns nil, nil when the device has none stored.
func (r *Repository) GetPreferences(ctx context.Context, deviceID string) (*device.Preferences, error) {
	const q = `
		SELECT device_id, units, click_url, updated_at
		FROM device_preferences
		WHERE device_id = $1
	`

	var p device.Preferences
	var units string

	err := r.q.QueryRow(ctx, q, deviceID).Scan(&p.DeviceID, &units, &p.ClickURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying preferences for device %s: %w", deviceID, err)
	}

	p.Units = weather.Units(units)
	return &p, nil
}

// UpsertPreferences inserts or updates the preferences of a device.
func (r *Repository) UpsertPreferences(ctx context.Context, p device.Preferences) error {
	const q = `
		INSERT INTO device_preferences (device_id, units, click_url, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (device_id) DO UPDATE
		SET units      = EXCLUDED.units,
		    click_url  = EXCLUDED.click_url,
		    updated_at = EXCLUDED.updated_at
	`

	p = p.WithDefaults()
	if _, err := r.q.Exec(ctx, q, p.DeviceID, string(p.Units), p.ClickURL); err != nil {
		return fmt.Errorf("upserting preferences for device %s: %w", p.DeviceID, err)
	}

	return nil
}

// GetReading retrieves the reading currently published for a device.
// Returns nil, nil when nothing has been published yet.
func (r *Repository) GetReading(ctx context.Context, deviceID string) (*device.Reading, error) {
	const q = `
		SELECT device_id, latitude, longitude, units, data, resolved_at
		FROM readings
		WHERE device_id = $1
	`

	row := r.q.QueryRow(ctx, q, deviceID)
	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying reading for device %s: %w", deviceID, err)
	}

	return reading, nil
}

// UpsertReading replaces the published reading of a device.
func (r *Repository) UpsertReading(ctx context.Context, reading device.Reading) error {
	dataJSON, err := json.Marshal(readingData{Weather: reading.Weather, Summary: reading.Summary})
	if err != nil {
		return fmt.Errorf("marshaling reading data for device %s: %w", reading.DeviceID, err)
	}

	const q = `
		INSERT INTO readings (device_id, latitude, longitude, units, data, resolved_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (device_id) DO UPDATE
		SET latitude    = EXCLUDED.latitude,
		    longitude   = EXCLUDED.longitude,
		    units       = EXCLUDED.units,
		    data        = EXCLUDED.data,
		    resolved_at = EXCLUDED.resolved_at,
		    updated_at  = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, q,
		reading.DeviceID,
		reading.Coordinate.Latitude,
		reading.Coordinate.Longitude,
		string(reading.Units),
		dataJSON,
		reading.ResolvedAt,
	); err != nil {
		return fmt.Errorf("upserting reading for device %s: %w", reading.DeviceID, err)
	}

	return nil
}

// ListReadingsByConditionCode returns the published readings whose current
// condition code equals code. Uses the JSONB @> containment operator.
func (r *Repository) ListReadingsByConditionCode(ctx context.Context, code int) ([]*device.Reading, error) {
	filter, err := json.Marshal(map[string]any{
		"weather": map[string]any{"condition_code": code},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONB filter: %w", err)
	}

	const q = `
		SELECT device_id, latitude, longitude, units, data, resolved_at
		FROM readings
		WHERE data @> $1::jsonb
		ORDER BY resolved_at DESC
	`

	rows, err := r.q.Query(ctx, q, string(filter))
	if err != nil {
		return nil, fmt.Errorf("querying readings by condition code: %w", err)
	}
	defer rows.Close()

	var results []*device.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading row: %w", err)
		}
		results = append(results, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reading rows: %w", err)
	}

	return results, nil
}

// scanReading scans one readings row. pgx.Row and pgx.Rows both satisfy the
// argument.
func scanReading(row interface{ Scan(dest ...any) error }) (*device.Reading, error) {
	var reading device.Reading
	var units string
	var dataJSON []byte
	var resolvedAt time.Time

	if err := row.Scan(
		&reading.DeviceID,
		&reading.Coordinate.Latitude,
		&reading.Coordinate.Longitude,
		&units,
		&dataJSON,
		&resolvedAt,
	); err != nil {
		return nil, err
	}

	var data readingData
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling reading data for device %s: %w", reading.DeviceID, err)
	}

	reading.Units = weather.Units(units)
	reading.Weather = data.Weather
	reading.Summary = data.Summary
	reading.ResolvedAt = resolvedAt
	return &reading, nil
}
