package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neexbeast/weatherosm/internal/device"
	"github.com/neexbeast/weatherosm/internal/weather"
)

// ErrNoFix is returned when a device has no usable location to refresh from.
var ErrNoFix = errors.New("no recent location for device")

// Resolver runs the weather pipeline for one coordinate.
type Resolver interface {
	Resolve(ctx context.Context, coord weather.Coordinate, opts weather.Options) (*weather.WeatherRecord, error)
}

// Store persists preferences and published readings.
type Store interface {
	GetPreferences(ctx context.Context, deviceID string) (*device.Preferences, error)
	UpsertReading(ctx context.Context, reading device.Reading) error
}

// ReadingCache holds the hot copy of published readings.
type ReadingCache interface {
	Set(ctx context.Context, deviceID string, reading *device.Reading) error
	Delete(ctx context.Context, deviceID string) error
}

// Service refreshes and publishes device readings.
type Service struct {
	resolver     Resolver
	store        Store
	cache        ReadingCache
	tracker      *Tracker
	defaultUnits weather.Units
	log          *slog.Logger
	now          func() time.Time
}

// NewService wires a Service. defaultUnits applies to devices without stored
// preferences.
func NewService(resolver Resolver, store Store, cache ReadingCache, tracker *Tracker, defaultUnits weather.Units, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver:     resolver,
		store:        store,
		cache:        cache,
		tracker:      tracker,
		defaultUnits: defaultUnits.OrDefault(),
		log:          log,
		now:          time.Now,
	}
}

// Tracker returns the fix tracker the service refreshes from.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Report records the device's current location for later refreshes.
func (s *Service) Report(deviceID string, coord weather.Coordinate) device.Fix {
	return s.tracker.Report(deviceID, coord)
}

// Refresh resolves weather for coord using the device's preferences and
// publishes the result. On error nothing is published.
func (s *Service) Refresh(ctx context.Context, deviceID string, coord weather.Coordinate) (*device.Reading, error) {
	deviceID = device.NormalizeID(deviceID)

	prefs, err := s.store.GetPreferences(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if prefs == nil {
		p := device.DefaultPreferences(deviceID)
		p.Units = s.defaultUnits
		prefs = &p
	}
	p := prefs.WithDefaults()

	rec, err := s.resolver.Resolve(ctx, coord, weather.Options{Units: p.Units})
	if err != nil {
		return nil, fmt.Errorf("resolving weather for device %s: %w", deviceID, err)
	}

	reading := &device.Reading{
		DeviceID:   deviceID,
		Coordinate: coord,
		Units:      p.Units,
		Weather:    rec,
		Summary:    weather.Summarize(rec, p.Units, p.ClickURL),
		ResolvedAt: s.now().UTC(),
	}

	if err := s.store.UpsertReading(ctx, *reading); err != nil {
		return nil, fmt.Errorf("storing reading: %w", err)
	}

	// The database row is authoritative; a cache failure only costs a miss.
	if err := s.cache.Delete(ctx, deviceID); err != nil {
		s.log.Warn("failed to invalidate cached reading", "device", deviceID, "err", err)
	}
	if err := s.cache.Set(ctx, deviceID, reading); err != nil {
		s.log.Warn("failed to cache reading", "device", deviceID, "err", err)
	}

	return reading, nil
}

// RefreshDevice refreshes a device from its tracked fix. It returns ErrNoFix
// when the fix is missing or stale.
func (s *Service) RefreshDevice(ctx context.Context, deviceID string) (*device.Reading, error) {
	fix, ok := s.tracker.Fresh(deviceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFix, deviceID)
	}
	return s.Refresh(ctx, deviceID, fix.Coordinate)
}

// RefreshAll refreshes every tracked device in turn and returns how many were
// published. Stale devices and failures are logged and skipped.
func (s *Service) RefreshAll(ctx context.Context) int {
	published := 0
	for _, id := range s.tracker.Devices() {
		if err := ctx.Err(); err != nil {
			s.log.Warn("refresh cycle cancelled", "err", err)
			break
		}

		_, err := s.RefreshDevice(ctx, id)
		switch {
		case errors.Is(err, ErrNoFix):
			s.log.Warn("skipping device with stale location", "device", id)
		case err != nil:
			s.log.Error("refresh failed", "device", id, "err", err)
		default:
			published++
		}
	}
	return published
}
