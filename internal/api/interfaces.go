package api

import (
	"context"

	"github.com/neexbeast/weatherosm/internal/device"
	"github.com/neexbeast/weatherosm/internal/weather"
)

// ReadingRepo defines the storage operations needed by handlers.
type ReadingRepo interface {
	GetReading(ctx context.Context, deviceID string) (*device.Reading, error)
	ListReadingsByConditionCode(ctx context.Context, code int) ([]*device.Reading, error)
	GetPreferences(ctx context.Context, deviceID string) (*device.Preferences, error)
	UpsertPreferences(ctx context.Context, p device.Preferences) error
}

// ReadingCache defines the cache operations needed by handlers.
type ReadingCache interface {
	Get(ctx context.Context, deviceID string) (*device.Reading, error)
	Set(ctx context.Context, deviceID string, reading *device.Reading) error
}

// WeatherResolver runs the weather pipeline for a single coordinate.
type WeatherResolver interface {
	Resolve(ctx context.Context, coord weather.Coordinate, opts weather.Options) (*weather.WeatherRecord, error)
}

// DeviceRefresher records device locations and publishes fresh readings.
type DeviceRefresher interface {
	Report(deviceID string, coord weather.Coordinate) device.Fix
	Refresh(ctx context.Context, deviceID string, coord weather.Coordinate) (*device.Reading, error)
	RefreshDevice(ctx context.Context, deviceID string) (*device.Reading, error)
}
