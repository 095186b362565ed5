package refresh

import (
	"sort"
	"sync"
	"time"

	"github.com/neexbeast/weatherosm/internal/device"
	"github.com/neexbeast/weatherosm/internal/weather"
)

// DefaultMaxAge is how long a reported fix stays usable.
const DefaultMaxAge = 10 * time.Minute

// Tracker remembers the last location reported by each device.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	fixes  map[string]device.Fix
	maxAge time.Duration
	now    func() time.Time
}

// NewTracker returns an empty Tracker. A non-positive maxAge selects
// DefaultMaxAge.
func NewTracker(maxAge time.Duration) *Tracker {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Tracker{
		fixes:  make(map[string]device.Fix),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Report records coord as the device's current fix.
func (t *Tracker) Report(deviceID string, coord weather.Coordinate) device.Fix {
	fix := device.Fix{Coordinate: coord, At: t.now()}

	t.mu.Lock()
	t.fixes[device.NormalizeID(deviceID)] = fix
	t.mu.Unlock()

	return fix
}

// Fresh returns the device's fix when it exists and is not older than the
// tracker's max age.
func (t *Tracker) Fresh(deviceID string) (device.Fix, bool) {
	t.mu.RLock()
	fix, ok := t.fixes[device.NormalizeID(deviceID)]
	t.mu.RUnlock()

	if !ok || t.now().Sub(fix.At) > t.maxAge {
		return device.Fix{}, false
	}
	return fix, true
}

// Devices lists every device that has reported a fix, sorted.
func (t *Tracker) Devices() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.fixes))
	for id := range t.fixes {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
