package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// geocoder is the interface satisfied by GeocodeClient.
type geocoder interface {
	ReverseGeocode(ctx context.Context, coord Coordinate) (PlaceTuple, error)
}

// identifierResolver is the interface satisfied by PlacesClient.
type identifierResolver interface {
	ResolveIdentifiers(ctx context.Context, place PlaceTuple) (Resolution, error)
}

// feedFetcher is the interface satisfied by FeedClient.
type feedFetcher interface {
	FetchWeather(ctx context.Context, id LocationIdentifier, town string, units Units) (WeatherRecord, error)
}

// Endpoints configures the production clients. Empty URLs select the public
// defaults.
type Endpoints struct {
	GeocodeURL  string
	PlacesURL   string
	FeedURL     string
	PlacesAppID string
	PlacesCount int
	UserAgent   string
	Timeout     time.Duration
}

// Pipeline resolves a coordinate to current weather: reverse geocode, resolve
// identifiers, then try the weather feed for each identifier in order.
type Pipeline struct {
	geocoder geocoder
	places   identifierResolver
	feed     feedFetcher
	log      *slog.Logger
}

// NewPipeline constructs a Pipeline with all three clients built from ep.
func NewPipeline(ep Endpoints, log *slog.Logger) *Pipeline {
	opts := []Option{
		WithTimeout(ep.Timeout),
		WithUserAgent(ep.UserAgent),
		WithResultCount(ep.PlacesCount),
	}

	geo := NewGeocodeClient(opts...)
	if ep.GeocodeURL != "" {
		geo = NewGeocodeClientWithURL(ep.GeocodeURL, opts...)
	}
	places := NewPlacesClient(ep.PlacesAppID, opts...)
	if ep.PlacesURL != "" {
		places = NewPlacesClientWithURL(ep.PlacesURL, ep.PlacesAppID, opts...)
	}
	feed := NewFeedClient(opts...)
	if ep.FeedURL != "" {
		feed = NewFeedClientWithURL(ep.FeedURL, opts...)
	}

	return NewPipelineWithClients(geo, places, feed, log)
}

// NewPipelineWithClients constructs a Pipeline with injectable clients (used in tests).
func NewPipelineWithClients(g geocoder, r identifierResolver, f feedFetcher, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{geocoder: g, places: r, feed: f, log: log}
}

// Resolve returns the first valid weather record for coord, or nil with a nil
// error when every identifier yields an incomplete record. Errors wrap one of
// ErrInvalidPlace, ErrNoLocationFound, ErrNetwork or ErrParse; network and
// parse errors stop the fallback loop immediately.
func (p *Pipeline) Resolve(ctx context.Context, coord Coordinate, opts Options) (*WeatherRecord, error) {
	units := opts.Units.OrDefault()
	p.log.Debug("resolving weather", "lat", coord.Latitude, "lon", coord.Longitude, "units", units)

	raw, err := p.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		return nil, err
	}

	place := raw.Normalize()
	if !place.Valid() {
		return nil, fmt.Errorf("%w: city=%q county=%q country=%q",
			ErrInvalidPlace, raw.City, raw.County, raw.CountryISO)
	}

	res, err := p.places.ResolveIdentifiers(ctx, place)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: %s", ErrNoLocationFound, place)
	}

	for _, id := range res.Place.Identifiers {
		p.log.Debug("trying woeid", "woeid", id.ID, "precision", id.Precision)

		rec, err := p.feed.FetchWeather(ctx, id, res.Place.Town, units)
		if err != nil {
			return nil, err
		}
		if rec.Valid() {
			return &rec, nil
		}
	}

	p.log.Info("no weather data for place", "place", place.String(), "woeids", res.Place.IDs())
	return nil, nil
}
