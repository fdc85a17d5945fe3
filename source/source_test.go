package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hyprice/models"
)

func TestDexScreenerFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/tokens/0xabc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs":[{"priceUsd":"1.23456","priceChange":{"h24":-3.2}}]}`))
	}))
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, time.Second)
	snap, err := c.Fetch(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.PriceUSD != "1.23456" {
		t.Errorf("PriceUSD = %q, want 1.23456", snap.PriceUSD)
	}
	if snap.PriceChange24h != "-3.2" {
		t.Errorf("PriceChange24h = %q, want -3.2", snap.PriceChange24h)
	}
}

func TestDexScreenerFetchNoPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[]}`))
	}))
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "0xabc"); err == nil {
		t.Error("expected error for a token with no pairs")
	}
}

// flakySource fails a fixed number of times before succeeding.
type flakySource struct {
	failures int
	calls    int
}

func (f *flakySource) Fetch(ctx context.Context, address string) (models.Snapshot, error) {
	f.calls++
	if f.calls <= f.failures {
		return models.Snapshot{}, errors.New("upstream hiccup")
	}
	return models.Snapshot{PriceUSD: "1.0", PriceChange24h: "0"}, nil
}

func TestRetrierRetriesUntilSuccess(t *testing.T) {
	src := &flakySource{failures: 2}
	r := NewRetrier(src, time.Millisecond, 0)

	snap, err := r.Fetch(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.PriceUSD != "1.0" {
		t.Errorf("PriceUSD = %q", snap.PriceUSD)
	}
	if src.calls != 3 {
		t.Errorf("source called %d times, want 3", src.calls)
	}
}

func TestRetrierStopsOnCancel(t *testing.T) {
	src := &flakySource{failures: 1 << 30}
	r := NewRetrier(src, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(ctx, "0xabc")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop leaked after context cancellation")
	}
}

func TestRetrierHonorsMaxRetries(t *testing.T) {
	src := &flakySource{failures: 1 << 30}
	r := NewRetrier(src, time.Millisecond, 2)

	if _, err := r.Fetch(context.Background(), "0xabc"); err == nil {
		t.Error("expected error once retries are exhausted")
	}
	if src.calls != 3 {
		t.Errorf("source called %d times, want 1 attempt + 2 retries", src.calls)
	}
}
