package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newDexScreenerTestServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

func TestGetPrice_MostLiquidPair(t *testing.T) {
	t.Parallel()

	server := newDexScreenerTestServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/tokens/token-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs":[{"priceUsd":"0.000123"},{"priceUsd":"0.000999"}]}`))
	})
	defer server.Close()

	c := NewDexScreenerClient(&Config{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})

	price, err := c.GetPrice(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The first pair wins.
	if price != 0.000123 {
		t.Errorf("price = %v, want 0.000123", price)
	}
}

func TestGetPrice_NoPairs(t *testing.T) {
	t.Parallel()

	server := newDexScreenerTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs":[]}`))
	})
	defer server.Close()

	c := NewDexScreenerClient(&Config{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})

	_, err := c.GetPrice(context.Background(), "unknown")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetPrice_BadPriceString(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"pairs":[{"priceUsd":"not-a-number"}]}`,
		`{"pairs":[{"priceUsd":"0"}]}`,
		`{"pairs":[{"priceUsd":"-1.5"}]}`,
	} {
		server := newDexScreenerTestServer(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})

		c := NewDexScreenerClient(&Config{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})
		_, err := c.GetPrice(context.Background(), "token-1")
		server.Close()

		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("body %s: expected ErrUnavailable, got %v", body, err)
		}
	}
}

func TestGetPrice_ServerError(t *testing.T) {
	t.Parallel()

	server := newDexScreenerTestServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	defer server.Close()

	c := NewDexScreenerClient(&Config{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})

	_, err := c.GetPrice(context.Background(), "token-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetPrice_MalformedJSON(t *testing.T) {
	t.Parallel()

	server := newDexScreenerTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>cloudflare</html>`))
	})
	defer server.Close()

	c := NewDexScreenerClient(&Config{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})

	_, err := c.GetPrice(context.Background(), "token-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// mapCache is a deterministic Cache for testing the cached wrapper.
type mapCache struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]interface{})}
}

func (m *mapCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mapCache) Set(key string, value interface{}, _ time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return true
}

func (m *mapCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *mapCache) Close() {}

type countingSource struct {
	calls int
	price float64
	err   error
}

func (s *countingSource) GetPrice(_ context.Context, _ string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func TestCachedSource_SecondLookupHitsCache(t *testing.T) {
	t.Parallel()

	source := &countingSource{price: 0.5}
	cached := NewCachedSource(source, newMapCache(), time.Minute)

	for i := 0; i < 3; i++ {
		price, err := cached.GetPrice(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 0.5 {
			t.Errorf("price = %v, want 0.5", price)
		}
	}

	if source.calls != 1 {
		t.Errorf("source calls = %d, want 1", source.calls)
	}
}

func TestCachedSource_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	source := &countingSource{err: ErrUnavailable}
	cached := NewCachedSource(source, newMapCache(), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cached.GetPrice(context.Background(), "token-1")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}

	// Every failed lookup goes back to the source.
	if source.calls != 2 {
		t.Errorf("source calls = %d, want 2", source.calls)
	}

	// Recovery: once the source heals, the price flows through.
	source.err = nil
	source.price = 1.25
	price, err := cached.GetPrice(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1.25 {
		t.Errorf("price = %v, want 1.25", price)
	}
}

func TestCachedSource_DistinctTokensAreDistinctKeys(t *testing.T) {
	t.Parallel()

	store := newMapCache()
	source := &countingSource{price: 2.0}
	cached := NewCachedSource(source, store, time.Minute)

	if _, err := cached.GetPrice(context.Background(), "token-A"); err != nil {
		t.Fatal(err)
	}
	source.price = 3.0
	if _, err := cached.GetPrice(context.Background(), "token-B"); err != nil {
		t.Fatal(err)
	}

	a, _ := store.Get("price:token-A")
	b, _ := store.Get("price:token-B")
	if a != 2.0 || b != 3.0 {
		t.Errorf("cached prices = %v/%v, want 2/3", a, b)
	}
}
