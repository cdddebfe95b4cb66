package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Response is the part of an HTTP response the NewsAPI client and the
// description scraper read.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client issues GET requests. Tests substitute fakes for it.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Options tunes the underlying resty client.
type Options struct {
	Timeout time.Duration
	// RequestsPerSecond paces outgoing requests when positive. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	// MaxBodyBytes caps the bytes read from a response body when positive.
	// Larger bodies fail with ErrBodyTooLarge before they are buffered whole.
	MaxBodyBytes int
}

// ErrBodyTooLarge is returned by Get when a response exceeds Options.MaxBodyBytes.
var ErrBodyTooLarge = resty.ErrResponseBodyTooLarge

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return NewRestyClientWithOptions(Options{Timeout: timeout})
}

// NewRestyClientWithOptions creates a RestyClient with timeout and optional pacing.
func NewRestyClientWithOptions(opts Options) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(opts)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

// newRestyBaseClient creates a new resty.Client from opts.
func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.RequestsPerSecond > 0 {
		c.SetTransport(NewRateLimitedTransport(http.DefaultTransport, opts.RequestsPerSecond, opts.Burst))
	}
	if opts.MaxBodyBytes > 0 {
		c.SetResponseBodyLimit(opts.MaxBodyBytes)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }

// RateLimitedTransport waits on a token bucket before each round trip.
type RateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// NewRateLimitedTransport wraps base with a limiter of rps requests per second.
func NewRateLimitedTransport(base http.RoundTripper, rps float64, burst int) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedTransport{
		transport: base,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}
