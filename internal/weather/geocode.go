package weather

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

const nominatimDefaultURL = "https://nominatim.openstreetmap.org/reverse"

// GeocodeClient reverse-geocodes coordinates with Nominatim (no API key).
type GeocodeClient struct {
	baseURL   string
	transport *transport
}

// NewGeocodeClient constructs a GeocodeClient using the public Nominatim endpoint.
func NewGeocodeClient(opts ...Option) *GeocodeClient {
	return NewGeocodeClientWithURL(nominatimDefaultURL, opts...)
}

// NewGeocodeClientWithURL constructs a GeocodeClient pointing at a custom base URL.
func NewGeocodeClientWithURL(baseURL string, opts ...Option) *GeocodeClient {
	return &GeocodeClient{
		baseURL:   baseURL,
		transport: newTransport("nominatim", buildOptions(opts)),
	}
}

// ReverseGeocode returns the raw place tuple for coord. The tuple is not
// normalized or validated.
func (c *GeocodeClient) ReverseGeocode(ctx context.Context, coord Coordinate) (PlaceTuple, error) {
	q := url.Values{}
	q.Set("format", "xml")
	q.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	endpoint := c.baseURL + "?" + q.Encode()

	var x addressExtractor
	if err := c.transport.stream(ctx, endpoint, x.handle); err != nil {
		return PlaceTuple{}, fmt.Errorf("reverse geocoding %s: %w", coord, err)
	}

	return x.place(), nil
}

// addressExtractor captures the text of <city>, <county> and <country_code>.
// Each flag is set by its start tag and every flag is cleared by any end tag.
type addressExtractor struct {
	inCity    bool
	inCounty  bool
	inCountry bool

	city       string
	county     string
	countryISO string
}

func (x *addressExtractor) handle(ev xmlstream.Event) error {
	switch ev.Kind {
	case xmlstream.StartTag:
		switch ev.Name {
		case "city":
			x.inCity = true
		case "county":
			x.inCounty = true
		case "country_code":
			x.inCountry = true
		}
	case xmlstream.Text:
		if x.inCity {
			x.city = ev.Text
		}
		if x.inCounty {
			x.county = ev.Text
		}
		if x.inCountry {
			x.countryISO = ev.Text
		}
	case xmlstream.EndTag:
		x.inCity, x.inCounty, x.inCountry = false, false, false
	}
	return nil
}

func (x *addressExtractor) place() PlaceTuple {
	return PlaceTuple{City: x.city, County: x.county, CountryISO: x.countryISO}
}
