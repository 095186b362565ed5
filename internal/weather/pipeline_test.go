package weather_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weatherosm/internal/weather"
)

// ---- mock implementations ----

type mockGeocoder struct {
	reverseFn func(ctx context.Context, coord weather.Coordinate) (weather.PlaceTuple, error)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, coord weather.Coordinate) (weather.PlaceTuple, error) {
	return m.reverseFn(ctx, coord)
}

type mockResolver struct {
	calls     int
	resolveFn func(ctx context.Context, place weather.PlaceTuple) (weather.Resolution, error)
}

func (m *mockResolver) ResolveIdentifiers(ctx context.Context, place weather.PlaceTuple) (weather.Resolution, error) {
	m.calls++
	return m.resolveFn(ctx, place)
}

type mockFeed struct {
	tried   []string
	fetchFn func(ctx context.Context, id weather.LocationIdentifier, town string, units weather.Units) (weather.WeatherRecord, error)
}

func (m *mockFeed) FetchWeather(ctx context.Context, id weather.LocationIdentifier, town string, units weather.Units) (weather.WeatherRecord, error) {
	m.tried = append(m.tried, id.ID)
	return m.fetchFn(ctx, id, town, units)
}

// ---- helpers ----

var paris = weather.Coordinate{Latitude: 48.8566, Longitude: 2.3522}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func placeOf(city, county, iso string) *mockGeocoder {
	return &mockGeocoder{reverseFn: func(_ context.Context, _ weather.Coordinate) (weather.PlaceTuple, error) {
		return weather.PlaceTuple{City: city, County: county, CountryISO: iso}, nil
	}}
}

func resolvedTo(town string, ids ...string) *mockResolver {
	return &mockResolver{resolveFn: func(_ context.Context, _ weather.PlaceTuple) (weather.Resolution, error) {
		place := weather.ResolvedPlace{Town: town}
		for _, id := range ids {
			place.Identifiers = append(place.Identifiers, weather.LocationIdentifier{ID: id})
		}
		return weather.Resolution{Place: place, Found: len(ids) > 0}, nil
	}}
}

func validRecord(temp int) weather.WeatherRecord {
	return weather.WeatherRecord{Temperature: intPtr(temp), ConditionCode: intPtr(32), ConditionText: strPtr("Sunny"), Location: "Paris, France"}
}

// ---- Resolve ----

func TestResolve_FirstValidRecordWins(t *testing.T) {
	feed := &mockFeed{fetchFn: func(_ context.Context, id weather.LocationIdentifier, _ string, _ weather.Units) (weather.WeatherRecord, error) {
		switch id.ID {
		case "a":
			return weather.WeatherRecord{ConditionCode: intPtr(11)}, nil // no temperature
		case "b":
			return validRecord(54), nil
		default:
			t.Fatalf("identifier %s should not be tried", id.ID)
			return weather.WeatherRecord{}, nil
		}
	}}

	p := weather.NewPipelineWithClients(placeOf("Paris", "", "fr"), resolvedTo("Paris", "a", "b", "c"), feed, discardLogger())
	rec, err := p.Resolve(context.Background(), paris, weather.Options{})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 54, *rec.Temperature)
	assert.Equal(t, []string{"a", "b"}, feed.tried)
}

func TestResolve_AllInvalidReturnsNil(t *testing.T) {
	feed := &mockFeed{fetchFn: func(_ context.Context, _ weather.LocationIdentifier, _ string, _ weather.Units) (weather.WeatherRecord, error) {
		return weather.WeatherRecord{Temperature: intPtr(10)}, nil
	}}

	p := weather.NewPipelineWithClients(placeOf("Paris", "", "fr"), resolvedTo("", "a", "b"), feed, discardLogger())
	rec, err := p.Resolve(context.Background(), paris, weather.Options{})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"a", "b"}, feed.tried)
}

func TestResolve_InvalidPlace(t *testing.T) {
	tests := []struct {
		name string
		geo  *mockGeocoder
	}{
		{"empty city and county", placeOf("", "", "fr")},
		{"empty country", placeOf("Paris", "", "")},
		{"whitespace only", placeOf("  ", "\n", "fr")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := resolvedTo("", "a")
			p := weather.NewPipelineWithClients(tt.geo, resolver, &mockFeed{}, discardLogger())

			rec, err := p.Resolve(context.Background(), paris, weather.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrInvalidPlace)
			assert.Nil(t, rec)
			assert.Zero(t, resolver.calls, "resolver must not be called for an invalid place")
		})
	}
}

func TestResolve_CountyFallback(t *testing.T) {
	var searched weather.PlaceTuple
	resolver := &mockResolver{resolveFn: func(_ context.Context, place weather.PlaceTuple) (weather.Resolution, error) {
		searched = place
		return weather.Resolution{}, nil
	}}

	p := weather.NewPipelineWithClients(placeOf("", "Cook County", "us"), resolver, &mockFeed{}, discardLogger())
	_, err := p.Resolve(context.Background(), paris, weather.Options{})
	assert.ErrorIs(t, err, weather.ErrNoLocationFound)
	assert.Equal(t, "Cook County", searched.City)
	assert.Equal(t, "us", searched.CountryISO)
}

func TestResolve_NetworkErrorAbortsFallback(t *testing.T) {
	feed := &mockFeed{fetchFn: func(_ context.Context, id weather.LocationIdentifier, _ string, _ weather.Units) (weather.WeatherRecord, error) {
		return weather.WeatherRecord{}, fmt.Errorf("fetching weather for woeid %s: %w", id.ID, weather.ErrNetwork)
	}}

	p := weather.NewPipelineWithClients(placeOf("Paris", "", "fr"), resolvedTo("", "a", "b"), feed, discardLogger())
	rec, err := p.Resolve(context.Background(), paris, weather.Options{})
	require.ErrorIs(t, err, weather.ErrNetwork)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"a"}, feed.tried)
}

func TestResolve_GeocodeErrorPropagates(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(_ context.Context, _ weather.Coordinate) (weather.PlaceTuple, error) {
		return weather.PlaceTuple{}, fmt.Errorf("reverse geocoding: %w", weather.ErrParse)
	}}

	p := weather.NewPipelineWithClients(geo, resolvedTo("", "a"), &mockFeed{}, discardLogger())
	_, err := p.Resolve(context.Background(), paris, weather.Options{})
	assert.ErrorIs(t, err, weather.ErrParse)
}

func TestResolve_PassesUnitsAndTown(t *testing.T) {
	var gotUnits weather.Units
	var gotTown string
	feed := &mockFeed{fetchFn: func(_ context.Context, _ weather.LocationIdentifier, town string, units weather.Units) (weather.WeatherRecord, error) {
		gotUnits, gotTown = units, town
		return validRecord(12), nil
	}}

	p := weather.NewPipelineWithClients(placeOf("Paris", "", "fr"), resolvedTo("Le Marais", "a"), feed, discardLogger())
	_, err := p.Resolve(context.Background(), paris, weather.Options{Units: weather.Celsius})
	require.NoError(t, err)
	assert.Equal(t, weather.Celsius, gotUnits)
	assert.Equal(t, "Le Marais", gotTown)
}

// ---- end to end against fake upstreams ----

func TestPipeline_EndToEnd(t *testing.T) {
	geoSrv := httptest.NewServer(xmlHandler(t, nominatimParis))
	defer geoSrv.Close()

	placesSrv := httptest.NewServer(xmlHandler(t, geoPlanetParis))
	defer placesSrv.Close()

	var tried []string
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		woeid := r.URL.Query().Get("w")
		tried = append(tried, woeid)
		if woeid == "615702" {
			// City-level WOEID without current conditions.
			xmlHandler(t, `<rss><channel><yweather:location xmlns:yweather="y" city="Paris" region="" country="France"/></channel></rss>`)(w, r)
			return
		}
		xmlHandler(t, feedParis)(w, r)
	}))
	defer feedSrv.Close()

	p := weather.NewPipeline(weather.Endpoints{
		GeocodeURL:  geoSrv.URL,
		PlacesURL:   placesSrv.URL,
		FeedURL:     feedSrv.URL,
		PlacesAppID: "key",
	}, discardLogger())

	rec, err := p.Resolve(context.Background(), paris, weather.Options{Units: weather.Fahrenheit})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"615702", "7153319"}, tried)
	assert.Equal(t, 54, *rec.Temperature)
	assert.Equal(t, "Paris, France", rec.Location)
}
