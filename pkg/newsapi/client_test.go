package newsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/headlines/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponse struct {
	body       []byte
	statusCode int
}

func (f fakeResponse) Body() []byte    { return f.body }
func (f fakeResponse) StatusCode() int { return f.statusCode }

// fakeHTTPClient records the request and returns a canned response.
type fakeHTTPClient struct {
	resp    fakeResponse
	err     error
	url     string
	headers map[string]string
	calls   int
}

func (f *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	f.calls++
	f.url = url
	f.headers = headers
	if f.err != nil {
		return nil, f.err
	}
	status := f.resp.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	return fakeResponse{body: f.resp.body, statusCode: status}, nil
}

const okBody = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {"title": "First", "url": "https://example.com/1", "description": "One"},
    {"title": "Second", "url": "https://example.com/2"},
    {"title": "Third", "url": "https://example.com/3", "description": null}
  ]
}`

func TestBuildURLDefaults(t *testing.T) {
	got, err := BuildURL(DefaultBaseURL, TopHeadlines, CountryUS)
	require.NoError(t, err)
	assert.Equal(t, "https://newsapi.org/v2/top-headlines?country=us", got)
}

func TestBuildURLTrailingSlashAndEscaping(t *testing.T) {
	got, err := BuildURL("https://example.com/api/", "top-headlines", "g b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/top-headlines?country=g+b", got)
}

func TestBuildURLFailures(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		endpoint Endpoint
		country  Country
	}{
		{name: "empty base", base: "", endpoint: TopHeadlines, country: CountryUS},
		{name: "unparseable base", base: "http://[::1", endpoint: TopHeadlines, country: CountryUS},
		{name: "relative base", base: "/v2", endpoint: TopHeadlines, country: CountryUS},
		{name: "empty endpoint", base: DefaultBaseURL, endpoint: " ", country: CountryUS},
		{name: "nested endpoint", base: DefaultBaseURL, endpoint: "a/b", country: CountryUS},
		{name: "empty country", base: DefaultBaseURL, endpoint: TopHeadlines, country: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildURL(tc.base, tc.endpoint, tc.country)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrURL)
			assert.Equal(t, KindURL, KindOf(err))
		})
	}
}

func TestFetchSendsRawAuthorization(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{body: []byte(okBody)}}
	client := NewClient(fake, Config{})

	env, err := client.Fetch(context.Background(), "K1")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "https://newsapi.org/v2/top-headlines?country=us", fake.url)
	assert.Equal(t, "K1", fake.headers["Authorization"])
	assert.Equal(t, DefaultUserAgent, fake.headers["User-Agent"])

	require.Len(t, env.Articles, 3)
	assert.Equal(t, "First", env.Articles[0].Title)
	require.NotNil(t, env.Articles[0].Description)
	assert.Equal(t, "One", *env.Articles[0].Description)
	assert.Nil(t, env.Articles[1].Description)
	assert.Nil(t, env.Articles[2].Description)
}

func TestFetchRejectedCodes(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reason string
		code   string
	}{
		{name: "disabled", body: `{"status":"error","code":"apiKeyDisabled","message":"x"}`, reason: ReasonAPIKeyDisabled, code: CodeAPIKeyDisabled},
		{name: "other code", body: `{"status":"error","code":"rateLimited"}`, reason: ReasonUnknown, code: "rateLimited"},
		{name: "no code", body: `{"status":"error"}`, reason: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient(&fakeHTTPClient{resp: fakeResponse{body: []byte(tc.body)}}, Config{})
			env, err := client.Fetch(context.Background(), "K")
			require.Nil(t, env)
			require.ErrorIs(t, err, ErrRejected)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.reason, apiErr.Reason)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestFetchDecodeAndParseErrors(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		want error
	}{
		{name: "empty body", body: nil, want: ErrDecode},
		{name: "invalid utf8", body: []byte{0xff, 0xfe, 0x7b}, want: ErrDecode},
		{name: "truncated json", body: []byte(`{"status":"ok","articles":[`), want: ErrParse},
		{name: "wrong shape", body: []byte(`{"status":"ok","articles":{}}`), want: ErrParse},
		{name: "missing status", body: []byte(`{"articles":[]}`), want: ErrParse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient(&fakeHTTPClient{resp: fakeResponse{body: tc.body}}, Config{})
			_, err := client.Fetch(context.Background(), "K")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	client := NewClient(&fakeHTTPClient{err: cause}, Config{})

	_, err := client.Fetch(context.Background(), "K")
	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
}

func TestFetchTruncatedBodyIsDecode(t *testing.T) {
	client := NewClient(&fakeHTTPClient{err: fmt.Errorf("read body: %w", io.ErrUnexpectedEOF)}, Config{})

	_, err := client.Fetch(context.Background(), "K")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFetchNon2xxWithoutEnvelopeIsTransport(t *testing.T) {
	client := NewClient(&fakeHTTPClient{resp: fakeResponse{body: []byte("<html>bad gateway</html>"), statusCode: http.StatusBadGateway}}, Config{})

	_, err := client.Fetch(context.Background(), "K")
	require.ErrorIs(t, err, ErrTransport)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
}

func TestFetchURLErrorSkipsRequest(t *testing.T) {
	fake := &fakeHTTPClient{}
	client := NewClient(fake, Config{BaseURL: "not a url"})

	_, err := client.Fetch(context.Background(), "K")
	assert.ErrorIs(t, err, ErrURL)
	assert.Zero(t, fake.calls)
}

func TestFetchAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/top-headlines" || r.URL.Query().Get("country") != "gb" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.Header.Get("Authorization") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyDisabled","message":"disabled"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client := NewClient(httpclient.NewRestyClient(2*time.Second), Config{
		BaseURL: srv.URL + "/v2",
		Country: "gb",
	})

	env, err := client.Fetch(context.Background(), "secret")
	require.NoError(t, err)
	assert.Len(t, env.Articles, 3)

	_, err = client.Fetch(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrRejected)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ReasonAPIKeyDisabled, apiErr.Reason)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
}

func TestReasonForCodeIsTotal(t *testing.T) {
	assert.Equal(t, ReasonAPIKeyDisabled, ReasonForCode("apiKeyDisabled"))
	for _, code := range []string{"", "apiKeyInvalid", "APIKEYDISABLED", "\x00"} {
		assert.Equal(t, ReasonUnknown, ReasonForCode(code), "code %q", code)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "rejected", KindRejected.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
