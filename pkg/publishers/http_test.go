package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPublisherPostsEventJSON(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var evt Event
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&evt)) {
			received <- evt
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeHTTP, pub.Type())

	evt := testEvent()
	require.NoError(t, pub.Publish(context.Background(), evt))

	got := <-received
	assert.Equal(t, evt.CardID, got.CardID)
	assert.Equal(t, evt.Card, got.Card)
	assert.Equal(t, "us", got.Country)
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL},
	}, nil)
	require.NoError(t, err)

	err = pub.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "nope")
}

func TestHTTPPublisherRequiresConfigBlock(t *testing.T) {
	_, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP}, nil)
	require.Error(t, err)
}
