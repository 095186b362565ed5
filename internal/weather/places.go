package weather

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

const (
	geoPlanetDefaultURL = "http://where.yahooapis.com/v1"
	defaultPlacesCount  = 5
)

// PlacesClient resolves a place tuple to WOEIDs with the GeoPlanet places
// search.
type PlacesClient struct {
	baseURL   string
	appID     string
	count     int
	transport *transport
}

// NewPlacesClient constructs a PlacesClient using the production GeoPlanet URL.
func NewPlacesClient(appID string, opts ...Option) *PlacesClient {
	return NewPlacesClientWithURL(geoPlanetDefaultURL, appID, opts...)
}

// NewPlacesClientWithURL constructs a PlacesClient pointing at a custom base URL.
func NewPlacesClientWithURL(baseURL, appID string, opts ...Option) *PlacesClient {
	o := buildOptions(opts)
	return &PlacesClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		count:     o.resultCount,
		transport: newTransport("geoplanet", o),
	}
}

// ResolveIdentifiers searches for place.City within place.CountryISO and
// returns the identifiers of every candidate whose country matches, most
// precise first. The tuple must already be normalized and valid.
func (c *PlacesClient) ResolveIdentifiers(ctx context.Context, place PlaceTuple) (Resolution, error) {
	term := "'" + place.City + "','" + place.CountryISO + "'"
	endpoint := fmt.Sprintf("%s/places.q(%s);count=%d?appid=%s",
		c.baseURL, url.PathEscape(term), c.count, url.QueryEscape(c.appID))

	x := newIdentifierExtractor(place.CountryISO)
	if err := c.transport.stream(ctx, endpoint, x.handle); err != nil {
		return Resolution{}, fmt.Errorf("resolving identifiers for %s: %w", place, err)
	}

	return x.resolution(), nil
}

// candidate is what has been read so far for the current <place>.
type candidate struct {
	primary     string
	countryCode string
	town        string
	alternates  []LocationIdentifier
}

// identifierExtractor reduces a places-search response. Data for each
// <place> is buffered and only kept when its country code matches.
type identifierExtractor struct {
	countryISO string

	inWoeid bool
	inTown  bool
	current candidate

	primary    string
	town       string
	alternates []LocationIdentifier
}

func newIdentifierExtractor(countryISO string) *identifierExtractor {
	return &identifierExtractor{countryISO: countryISO}
}

func isPrecisionTag(name string) bool {
	return strings.HasPrefix(name, "locality") || strings.HasPrefix(name, "admin")
}

func (x *identifierExtractor) handle(ev xmlstream.Event) error {
	switch ev.Kind {
	case xmlstream.StartTag:
		if ev.Name == "woeid" {
			x.inWoeid = true
		}
		if strings.HasPrefix(ev.Name, "country") {
			if code, ok := ev.Attr("code"); ok {
				x.current.countryCode = code
			}
		}
		if isPrecisionTag(ev.Name) {
			if typ, _ := ev.Attr("type"); typ == "Town" {
				x.inTown = true
			}
			if woeid, _ := ev.Attr("woeid"); strings.TrimSpace(woeid) != "" {
				x.current.alternates = append(x.current.alternates, LocationIdentifier{
					ID:        strings.TrimSpace(woeid),
					Precision: ev.Name,
				})
			}
		}
	case xmlstream.Text:
		if x.inWoeid {
			x.current.primary = strings.TrimSpace(ev.Text)
		}
		if x.inTown {
			x.current.town = strings.TrimSpace(ev.Text)
		}
	case xmlstream.EndTag:
		if ev.Name == "place" {
			x.commit()
		}
		x.inWoeid, x.inTown = false, false
	}
	return nil
}

// commit keeps the current candidate if its country matches and resets it.
func (x *identifierExtractor) commit() {
	c := x.current
	x.current = candidate{}

	if c.countryCode == "" || !strings.EqualFold(c.countryCode, x.countryISO) {
		return
	}
	if x.primary == "" {
		x.primary = c.primary
	}
	if x.town == "" {
		x.town = c.town
	}
	x.alternates = append(x.alternates, c.alternates...)
}

// resolution assembles the final ordering: primary first, then alternates
// stable-sorted by ascending comparison of the raw tag string (admin1 <
// admin2 < locality1 < locality3). The order is tied to the GeoPlanet tag
// spellings; a provider that renames its tags silently changes it.
func (x *identifierExtractor) resolution() Resolution {
	x.commit()

	alternates := slices.Clone(x.alternates)
	slices.SortStableFunc(alternates, func(a, b LocationIdentifier) int {
		return strings.Compare(a.Precision, b.Precision)
	})

	ids := make([]LocationIdentifier, 0, len(alternates)+1)
	seen := make(map[string]struct{}, len(alternates)+1)
	add := func(id LocationIdentifier) {
		if _, ok := seen[id.ID]; ok {
			return
		}
		seen[id.ID] = struct{}{}
		ids = append(ids, id)
	}

	if x.primary != "" {
		add(LocationIdentifier{ID: x.primary})
	}
	for _, id := range alternates {
		add(id)
	}

	if len(ids) == 0 {
		return Resolution{}
	}
	return Resolution{Place: ResolvedPlace{Identifiers: ids, Town: x.town}, Found: true}
}
