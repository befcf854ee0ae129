package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verifychain/verifychain/internal/domain"
)

func TestSnapshotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rates/IN10Y" {
			t.Errorf("path = %s, want /v1/rates/IN10Y", r.URL.Path)
		}
		w.Write([]byte(`{"live_yield": 7.20, "timestamp": 1756400000}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	snap, err := client.Snapshot(context.Background(), "IN10Y")
	if err != nil {
		t.Fatalf("Snapshot(): %v", err)
	}
	if snap.LiveYield != 7.20 {
		t.Errorf("LiveYield = %v, want 7.20", snap.LiveYield)
	}
	// The oracle's own timestamp is carried, never re-derived.
	if snap.TimestampSeconds != 1756400000 {
		t.Errorf("TimestampSeconds = %d, want 1756400000", snap.TimestampSeconds)
	}
}

func TestSnapshotIncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing yield", `{"timestamp": 1756400000}`},
		{"missing timestamp", `{"live_yield": 7.20}`},
		{"zero timestamp", `{"live_yield": 7.20, "timestamp": 0}`},
		{"invalid json", `{broken`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "", 5*time.Second)
			if _, err := client.Snapshot(context.Background(), "IN10Y"); !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestSnapshotZeroYieldIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"live_yield": 0, "timestamp": 1756400000}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	snap, err := client.Snapshot(context.Background(), "IN10Y")
	if err != nil {
		t.Fatalf("Snapshot(): a present zero yield must be accepted, got %v", err)
	}
	if snap.LiveYield != 0 {
		t.Errorf("LiveYield = %v, want 0", snap.LiveYield)
	}
}

func TestSnapshotHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	if _, err := client.Snapshot(context.Background(), "IN10Y"); err == nil {
		t.Fatal("Snapshot() succeeded on HTTP 503")
	}
}

func TestSnapshotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 20*time.Millisecond)
	if _, err := client.Snapshot(context.Background(), "IN10Y"); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestSnapshotSymbolEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"live_yield": 6.5, "timestamp": 1756400000}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	if _, err := client.Snapshot(context.Background(), "IN 10/Y"); err != nil {
		t.Fatalf("Snapshot(): %v", err)
	}
	if gotPath != "/v1/rates/IN%2010%2FY" {
		t.Errorf("path = %q, want escaped symbol", gotPath)
	}
}
