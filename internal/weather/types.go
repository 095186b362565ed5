package weather

import (
	"fmt"
	"strings"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// PlaceTuple is the administrative place a coordinate reverse-geocodes to.
type PlaceTuple struct {
	City       string
	County     string
	CountryISO string
}

// Normalize returns a copy with City falling back to County when empty.
func (p PlaceTuple) Normalize() PlaceTuple {
	p.City = strings.TrimSpace(p.City)
	p.County = strings.TrimSpace(p.County)
	p.CountryISO = strings.TrimSpace(p.CountryISO)
	if p.City == "" {
		p.City = p.County
	}
	return p
}

// Valid reports whether the normalized tuple can be used for a places search.
func (p PlaceTuple) Valid() bool {
	n := p.Normalize()
	return n.City != "" && n.CountryISO != ""
}

func (p PlaceTuple) String() string {
	return p.City + "," + p.CountryISO
}

// LocationIdentifier is an opaque WOEID together with the tag it was read
// from. Precision is empty for the primary identifier of a place.
type LocationIdentifier struct {
	ID        string
	Precision string
}

// ResolvedPlace holds the identifiers of a place, most precise first.
type ResolvedPlace struct {
	Identifiers []LocationIdentifier
	Town        string
}

// IDs returns the bare identifier strings in order.
func (r ResolvedPlace) IDs() []string {
	ids := make([]string, 0, len(r.Identifiers))
	for _, id := range r.Identifiers {
		ids = append(ids, id.ID)
	}
	return ids
}

// Resolution is the outcome of a places search. Found is false when no
// identifier survived country validation.
type Resolution struct {
	Place ResolvedPlace
	Found bool
}

// WeatherRecord is the current conditions for one location identifier.
// Absent values are nil.
type WeatherRecord struct {
	Temperature   *int    `json:"temperature,omitempty"`
	ConditionCode *int    `json:"condition_code,omitempty"`
	ConditionText *string `json:"condition_text,omitempty"`
	ForecastCode  *int    `json:"forecast_code_today,omitempty"`
	ForecastText  *string `json:"forecast_text_today,omitempty"`
	Location      string  `json:"location"`
}

// Valid reports whether both temperature and condition code are present.
func (w WeatherRecord) Valid() bool {
	return w.Temperature != nil && w.ConditionCode != nil
}

// Units is the temperature unit passed to the weather feed.
type Units string

const (
	Fahrenheit Units = "f"
	Celsius    Units = "c"

	DefaultUnits = Fahrenheit
)

// ParseUnits accepts "f" or "c" in any case. An empty string yields the
// default.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultUnits, nil
	case "f":
		return Fahrenheit, nil
	case "c":
		return Celsius, nil
	default:
		return "", fmt.Errorf("unknown units %q: want \"f\" or \"c\"", s)
	}
}

// OrDefault returns u, or DefaultUnits when u is not a known unit.
func (u Units) OrDefault() Units {
	if u == Fahrenheit || u == Celsius {
		return u
	}
	return DefaultUnits
}

// Options are the per-invocation settings of a pipeline run.
type Options struct {
	Units Units
}
