package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestLatestFetchesRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("base"); got != "USD" {
			t.Errorf("base = %q, want USD", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"amount":1,"base":"USD","date":"2024-03-01","rates":{"MXN":17.5,"EUR":0.92}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, time.Minute)
	table, err := c.Latest(context.Background(), core.USD)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if table.Base != core.USD {
		t.Errorf("Base = %v, want USD", table.Base)
	}
	if table.Date != "2024-03-01" {
		t.Errorf("Date = %q, want 2024-03-01", table.Date)
	}
	if got := table.Rates[core.MXN]; got != 17.5 {
		t.Errorf("Rates[MXN] = %v, want 17.5", got)
	}
	if got := table.Rates[core.EUR]; got != 0.92 {
		t.Errorf("Rates[EUR] = %v, want 0.92", got)
	}
}

func TestLatestCachesPerBase(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"amount":1,"base":"MXN","date":"2024-03-01","rates":{"USD":0.057,"EUR":0.052}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := c.Latest(context.Background(), core.MXN); err != nil {
			t.Fatalf("Latest() call %d error = %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (cached)", got)
	}
}

func TestLatestDegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, time.Minute)
	table, err := c.Latest(context.Background(), core.EUR)
	if err == nil {
		t.Fatal("Latest() expected error on HTTP 502")
	}
	if len(table.Rates) != 0 {
		t.Errorf("degraded table should be empty, got %d rates", len(table.Rates))
	}

	// An empty table must still convert: identity fallback.
	if got := core.Convert(100, core.USD, core.EUR, table.Rates); got != 100 {
		t.Errorf("Convert with empty table = %v, want identity 100", got)
	}
}

func TestLatestDegradesOnBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, time.Minute)
	if _, err := c.Latest(context.Background(), core.USD); err == nil {
		t.Fatal("Latest() expected error on malformed body")
	}
}

func TestLatestIgnoresUnsupportedCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"amount":1,"base":"USD","date":"2024-03-01","rates":{"MXN":17.5,"JPY":150.2}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, time.Minute)
	table, err := c.Latest(context.Background(), core.USD)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(table.Rates) != 1 {
		t.Errorf("rates = %d, want 1 (JPY filtered out)", len(table.Rates))
	}
}
