package httpclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestyClientGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "key-1" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"Authorization": "key-1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusTeapot {
		t.Fatalf("StatusCode = %d", resp.StatusCode())
	}
	if string(resp.Body()) != "short and stout" {
		t.Fatalf("Body = %q", resp.Body())
	}
}

func TestRestyClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewRestyClient(time.Second)
	if _, err := client.Get(context.Background(), url, nil); err == nil {
		t.Fatalf("expected error for closed server")
	}
}

func TestRestyClientRejectsBodyOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := 64
		if r.URL.Path == "/big" {
			size = 4096
		}
		_, _ = w.Write(bytes.Repeat([]byte("x"), size))
	}))
	defer srv.Close()

	client := NewRestyClientWithOptions(Options{Timeout: 2 * time.Second, MaxBodyBytes: 1024})

	resp, err := client.Get(context.Background(), srv.URL+"/small", nil)
	if err != nil {
		t.Fatalf("Get small: %v", err)
	}
	if len(resp.Body()) != 64 {
		t.Fatalf("small body len = %d", len(resp.Body()))
	}

	if _, err := client.Get(context.Background(), srv.URL+"/big", nil); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Get big: err = %v, want ErrBodyTooLarge", err)
	}
}

func TestRateLimitedTransportPacesRequests(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRestyClientWithOptions(Options{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 20,
		Burst:             1,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), srv.URL, nil); err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("expected pacing to delay requests, took %v", elapsed)
	}
	if hits != 3 {
		t.Fatalf("expected 3 hits, got %d", hits)
	}
}

func TestRateLimitedTransportHonoursContext(t *testing.T) {
	rt := NewRateLimitedTransport(nil, 0.001, 1)
	// drain the single burst token
	rt.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatalf("expected context error")
	}
}
