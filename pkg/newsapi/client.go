package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/headlines/pkg/httpclient"
)

// DefaultBaseURL is the provider API root.
const DefaultBaseURL = "https://newsapi.org/v2"

// DefaultUserAgent identifies this client to the provider.
const DefaultUserAgent = "headlines"

// Endpoint selects the provider resource.
type Endpoint string

// TopHeadlines is the only endpoint the client queries.
const TopHeadlines Endpoint = "top-headlines"

// Country selects the edition of the headlines.
type Country string

// CountryUS is the default edition.
const CountryUS Country = "us"

// HTTPClient aliases the shared httpclient.Client interface.
type HTTPClient = httpclient.Client

// Config holds the fixed query configuration of a Client.
type Config struct {
	BaseURL   string
	Endpoint  Endpoint
	Country   Country
	UserAgent string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(string(c.Endpoint)) == "" {
		c.Endpoint = TopHeadlines
	}
	if strings.TrimSpace(string(c.Country)) == "" {
		c.Country = CountryUS
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Client queries the top headlines endpoint.
type Client struct {
	http HTTPClient
	cfg  Config
}

// DefaultHTTPClient returns the resty-backed client used when none is injected.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(30 * time.Second) }

// NewClient builds a Client; a nil http client falls back to DefaultHTTPClient.
func NewClient(client HTTPClient, cfg Config) *Client {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Client{http: client, cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// BuildURL composes <base>/<endpoint>?country=<country>.
func BuildURL(base string, endpoint Endpoint, country Country) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", newError(KindURL, errors.New("base url is empty"))
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", newError(KindURL, fmt.Errorf("parse base url: %w", err))
	}
	if u.Scheme == "" || u.Host == "" {
		return "", newError(KindURL, fmt.Errorf("base url %q is not absolute", base))
	}

	segment := strings.Trim(strings.TrimSpace(string(endpoint)), "/")
	if segment == "" {
		return "", newError(KindURL, errors.New("endpoint is empty"))
	}
	if strings.Contains(segment, "/") {
		return "", newError(KindURL, fmt.Errorf("endpoint %q must be a single path segment", endpoint))
	}
	if strings.TrimSpace(string(country)) == "" {
		return "", newError(KindURL, errors.New("country is empty"))
	}

	u = u.JoinPath(segment)
	q := url.Values{}
	q.Set("country", string(country))
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String(), nil
}

// Fetch performs one request with the given credential and validates the envelope.
// Every failure is an *Error; none are retried.
func (c *Client) Fetch(ctx context.Context, credential string) (*Envelope, error) {
	if c == nil || c.http == nil {
		return nil, newError(KindTransport, errors.New("client is not initialized"))
	}

	target, err := BuildURL(c.cfg.BaseURL, c.cfg.Endpoint, c.cfg.Country)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Authorization": credential,
		"User-Agent":    c.cfg.UserAgent,
		"Accept":        "application/json",
	}

	resp, err := c.http.Get(ctx, target, headers)
	if err != nil {
		// a body cut short mid-read is a decode failure, not a network one
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newError(KindDecode, err)
		}
		return nil, newError(KindTransport, err)
	}

	return decodeEnvelope(resp.StatusCode(), resp.Body())
}

func decodeEnvelope(status int, body []byte) (*Envelope, error) {
	success := status >= http.StatusOK && status < http.StatusMultipleChoices

	if len(body) == 0 {
		if !success {
			return nil, &Error{Kind: KindTransport, HTTPStatus: status, Err: errors.New("empty response body")}
		}
		return nil, newError(KindDecode, errors.New("empty response body"))
	}
	if !utf8.Valid(body) {
		if !success {
			return nil, &Error{Kind: KindTransport, HTTPStatus: status, Err: errors.New("response body is not valid utf-8")}
		}
		return nil, newError(KindDecode, errors.New("response body is not valid utf-8"))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if !success {
			return nil, &Error{Kind: KindTransport, HTTPStatus: status, Err: fmt.Errorf("unexpected body: %s", responseSnippet(body))}
		}
		return nil, newError(KindParse, err)
	}
	if strings.TrimSpace(env.Status) == "" {
		if !success {
			return nil, &Error{Kind: KindTransport, HTTPStatus: status, Err: fmt.Errorf("unexpected body: %s", responseSnippet(body))}
		}
		return nil, newError(KindParse, errors.New("envelope has no status"))
	}

	if !env.OK() {
		apiErr := rejected(env.Code)
		apiErr.HTTPStatus = status
		return nil, apiErr
	}
	if !success {
		return nil, &Error{Kind: KindTransport, HTTPStatus: status, Err: errors.New("ok envelope with non-2xx status")}
	}

	return &env, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
