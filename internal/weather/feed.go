package weather

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

const yahooWeatherDefaultURL = "http://weather.yahooapis.com/forecastrss"

// FeedClient fetches the weather RSS feed for a WOEID.
type FeedClient struct {
	baseURL   string
	transport *transport
}

// NewFeedClient constructs a FeedClient using the production feed URL.
func NewFeedClient(opts ...Option) *FeedClient {
	return NewFeedClientWithURL(yahooWeatherDefaultURL, opts...)
}

// NewFeedClientWithURL constructs a FeedClient pointing at a custom base URL.
func NewFeedClientWithURL(baseURL string, opts ...Option) *FeedClient {
	return &FeedClient{
		baseURL:   baseURL,
		transport: newTransport("weatherfeed", buildOptions(opts)),
	}
}

// FetchWeather retrieves current conditions for id. town is appended to the
// location label when it differs from the feed's city, and is the whole label
// when the feed has no location element. An incomplete record is not an
// error; callers check Valid.
func (c *FeedClient) FetchWeather(ctx context.Context, id LocationIdentifier, town string, units Units) (WeatherRecord, error) {
	q := url.Values{}
	q.Set("w", id.ID)
	q.Set("u", string(units.OrDefault()))
	endpoint := c.baseURL + "?" + q.Encode()

	x := feedExtractor{town: town}
	if err := c.transport.stream(ctx, endpoint, x.handle); err != nil {
		return WeatherRecord{}, fmt.Errorf("fetching weather for woeid %s: %w", id.ID, err)
	}

	return x.result(), nil
}

type feedExtractor struct {
	town string

	record      WeatherRecord
	hasForecast bool
	hasLocation bool
}

func (x *feedExtractor) handle(ev xmlstream.Event) error {
	if ev.Kind != xmlstream.StartTag {
		return nil
	}

	switch ev.Name {
	case "condition":
		x.record.Temperature = intAttr(ev, "temp")
		x.record.ConditionCode = intAttr(ev, "code")
		x.record.ConditionText = stringAttr(ev, "text")
	case "forecast":
		// The first forecast entry is assumed to be today's.
		if x.hasForecast {
			return nil
		}
		x.hasForecast = true
		x.record.ForecastCode = intAttr(ev, "code")
		x.record.ForecastText = stringAttr(ev, "text")
	case "location":
		city, _ := ev.Attr("city")
		region, _ := ev.Attr("region")
		country, _ := ev.Attr("country")
		x.record.Location = BuildLocationLabel(city, x.town, region, country)
		x.hasLocation = true
	}
	return nil
}

func (x *feedExtractor) result() WeatherRecord {
	rec := x.record
	if !x.hasLocation {
		rec.Location = x.town
	}
	return rec
}

// BuildLocationLabel formats "{city[, town]}, {region}". Region falls back to
// country, and missing parts are shown as "--". town is only included when it
// is set and differs from city.
func BuildLocationLabel(city, town, region, country string) string {
	if city == "" {
		city = "--"
	}
	if region == "" {
		region = country
	}
	if region == "" {
		region = "--"
	}
	if town != "" && town != city {
		city = city + ", " + town
	}
	return city + ", " + region
}

func intAttr(ev xmlstream.Event, name string) *int {
	v, ok := ev.Attr(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

func stringAttr(ev xmlstream.Event, name string) *string {
	v, ok := ev.Attr(name)
	if !ok {
		return nil
	}
	return &v
}
