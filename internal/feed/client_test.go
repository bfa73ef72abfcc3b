package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientFetchOK(t *testing.T) {
	body := "<planList></planList>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "catalog-test/1.0" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	c := NewClient(ClientOptions{URL: server.URL, UserAgent: "catalog-test/1.0"})
	got, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(got) != body {
		t.Errorf("expected body %q, got %q", body, got)
	}
}

func TestClientFetchNon200(t *testing.T) {
	statuses := []int{http.StatusInternalServerError, http.StatusNotFound, http.StatusTooManyRequests}
	for _, status := range statuses {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(ClientOptions{URL: server.URL})
		_, err := c.Fetch(context.Background())
		server.Close()

		if !errors.Is(err, ErrFeedUnavailable) {
			t.Errorf("status %d: expected ErrFeedUnavailable, got %v", status, err)
		}
	}
}

func TestClientFetchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewClient(ClientOptions{URL: server.URL})
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestClientFetchCancelledContext(t *testing.T) {
	c := NewClient(ClientOptions{URL: "http://127.0.0.1:0", RatePerSecond: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First token is available; the cancelled context still aborts the
	// request itself.
	if _, err := c.Fetch(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
