package device

import (
	"strings"
	"time"

	"github.com/neexbeast/weatherosm/internal/weather"
)

// Preferences are the per-device display settings read before every refresh.
type Preferences struct {
	DeviceID  string        `json:"device_id"`
	Units     weather.Units `json:"units" validate:"omitempty,oneof=f c"`
	ClickURL  string        `json:"click_url" validate:"omitempty,url"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DefaultPreferences returns the settings used when a device has none stored.
func DefaultPreferences(deviceID string) Preferences {
	return Preferences{
		DeviceID: deviceID,
		Units:    weather.DefaultUnits,
		ClickURL: weather.DefaultClickURL,
	}
}

// WithDefaults fills empty fields with their defaults.
func (p Preferences) WithDefaults() Preferences {
	p.Units = p.Units.OrDefault()
	if p.ClickURL == "" {
		p.ClickURL = weather.DefaultClickURL
	}
	return p
}

// Reading is the state currently published for a device. Weather is nil when
// the last refresh found no data.
type Reading struct {
	DeviceID   string                 `json:"device_id"`
	Coordinate weather.Coordinate     `json:"coordinate"`
	Units      weather.Units          `json:"units"`
	Weather    *weather.WeatherRecord `json:"weather"`
	Summary    weather.Summary        `json:"summary"`
	ResolvedAt time.Time              `json:"resolved_at"`
}

// Fix is the last location reported by a device.
type Fix struct {
	Coordinate weather.Coordinate `json:"coordinate"`
	At         time.Time          `json:"at"`
}

// NormalizeID returns the canonical form of a device identifier.
func NormalizeID(deviceID string) string {
	return strings.ToLower(strings.TrimSpace(deviceID))
}
