package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

const (
	httpTimeout = 10 * time.Second

	// DefaultUserAgent identifies this client to the upstream services.
	DefaultUserAgent = "weatherosm/1.0"
)

// Option customizes a client.
type Option func(*options)

type options struct {
	httpClient  *http.Client
	userAgent   string
	resultCount int
}

// WithHTTPClient replaces the default http.Client (10-second timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithResultCount sets how many candidate places a places search asks for.
// Other clients ignore it.
func WithResultCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.resultCount = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient:  &http.Client{Timeout: httpTimeout},
		userAgent:   DefaultUserAgent,
		resultCount: defaultPlacesCount,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// transport issues uncached GET requests and streams the XML body to a
// handler. The body is closed exactly once on every path.
type transport struct {
	client    *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker
}

// errAbandoned marks a request the caller cancelled or let expire. It says
// nothing about the upstream, so the breaker does not count it as a failure.
var errAbandoned = errors.New("request abandoned by caller")

func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, errAbandoned)
}

func newTransport(name string, o options) *transport {
	return &transport{
		client:    o.httpClient,
		userAgent: o.userAgent,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         name,
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			IsSuccessful: countsAsSuccess,
		}),
	}
}

// stream performs a GET on rawURL and feeds the response to fn.
func (t *transport) stream(ctx context.Context, rawURL string, fn xmlstream.Handler) error {
	endpoint := redact(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request for %s: %w", ErrNetwork, endpoint, err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.client.Do(req)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = endpoint
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("%w: %w", errAbandoned, err)
			}
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrNetwork, endpoint, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return fmt.Errorf("%w: GET %s: unexpected result type %T", ErrNetwork, endpoint, result)
	}
	defer resp.Body.Close()

	if err := xmlstream.Walk(resp.Body, fn); err != nil {
		if errors.Is(err, xmlstream.ErrMalformed) {
			return fmt.Errorf("%w: decoding response from %s: %w", ErrParse, endpoint, err)
		}
		return fmt.Errorf("%w: reading response from %s: %w", ErrNetwork, endpoint, err)
	}

	return nil
}

// redact drops the query string so credentials never reach logs or errors.
func redact(rawURL string) string {
	base, _, _ := strings.Cut(rawURL, "?")
	return base
}
