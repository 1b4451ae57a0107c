package fx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDolarAPISource_FetchCurrent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		field   string
		want    string
		wantErr bool
	}{
		{"venta", http.StatusOK, `{"casa":"blue","compra":1180,"venta":1200.5}`, "venta", "1200.5", false},
		{"compra", http.StatusOK, `{"casa":"blue","compra":1180,"venta":1200}`, "compra", "1180", false},
		{"default field", http.StatusOK, `{"venta":1000}`, "", "1000", false},
		{"server error", http.StatusInternalServerError, `oops`, "venta", "", true},
		{"malformed json", http.StatusOK, `{"venta":`, "venta", "", true},
		{"missing field", http.StatusOK, `{"compra":1180}`, "venta", "", true},
		{"zero rate", http.StatusOK, `{"venta":0}`, "venta", "", true},
		{"negative rate", http.StatusOK, `{"venta":-3}`, "venta", "", true},
		{"unknown field", http.StatusOK, `{"venta":1000}`, "oficial", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewDolarAPISource(srv.URL, tt.field, time.Second).FetchCurrent(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got rate %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchCurrent failed: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDolarAPISource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"venta":1000}`))
	}))
	defer srv.Close()

	if _, err := NewDolarAPISource(srv.URL, "venta", 20*time.Millisecond).FetchCurrent(context.Background()); err == nil {
		t.Error("Expected a timeout error")
	}
}

// scriptedSource returns the queued results in order, repeating the last.
type scriptedSource struct {
	results []result
	calls   atomic.Int32
}

type result struct {
	rate string
	err  error
}

func (s *scriptedSource) FetchCurrent(context.Context) (decimal.Decimal, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	if r.err != nil {
		return decimal.Zero, r.err
	}
	return decimal.RequireFromString(r.rate), nil
}

var errDown = errors.New("connection refused")

func TestRateProvider_FallbackWhenNoGoodRate(t *testing.T) {
	p := NewRateProvider(&scriptedSource{results: []result{{err: errDown}}}, decimal.NewFromInt(1), time.Minute)

	q := p.Current(context.Background())
	if !q.Rate.Equal(decimal.NewFromInt(1)) || q.Source != OriginFallback {
		t.Errorf("Expected fallback rate 1, got %s (%s)", q.Rate, q.Source)
	}
	if q.Warning == "" {
		t.Error("Expected a warning on fallback")
	}
}

func TestRateProvider_CachedAfterFailure(t *testing.T) {
	src := &scriptedSource{results: []result{{rate: "1200"}, {err: errDown}}}
	p := NewRateProvider(src, decimal.NewFromInt(1), time.Minute)
	ctx := context.Background()

	live := p.Refresh(ctx)
	if !live.Rate.Equal(decimal.NewFromInt(1200)) || live.Source != OriginLive || live.Warning != "" {
		t.Fatalf("Expected live 1200 without warning, got %+v", live)
	}

	// Served from cache without calling the source.
	if q := p.Current(ctx); q.Source != OriginLive || src.calls.Load() != 1 {
		t.Errorf("Expected cache hit, got %+v after %d calls", q, src.calls.Load())
	}

	stale := p.Refresh(ctx)
	if !stale.Rate.Equal(decimal.NewFromInt(1200)) || stale.Source != OriginCached {
		t.Errorf("Expected last good 1200 (cached), got %s (%s)", stale.Rate, stale.Source)
	}
	if stale.Warning == "" {
		t.Error("Expected a warning when serving the last good rate")
	}
}

func TestRateProvider_RejectsNonPositiveFallback(t *testing.T) {
	p := NewRateProvider(StaticSource{}, decimal.Zero, time.Minute)
	q := p.Current(context.Background())
	if !q.Rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected fallback to default to 1, got %s", q.Rate)
	}
}

func TestStaticSource(t *testing.T) {
	got, err := StaticSource{Rate: decimal.NewFromInt(950)}.FetchCurrent(context.Background())
	if err != nil || !got.Equal(decimal.NewFromInt(950)) {
		t.Errorf("Expected 950, got %s %v", got, err)
	}
}

// slowFailingSource fails every fetch after a delay, counting calls.
type slowFailingSource struct {
	delay time.Duration
	calls atomic.Int32
}

func (s *slowFailingSource) FetchCurrent(context.Context) (decimal.Decimal, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return decimal.Zero, errDown
}

func TestRateProvider_OutageFetchesOnce(t *testing.T) {
	src := &slowFailingSource{delay: 50 * time.Millisecond}
	p := NewRateProvider(src, decimal.NewFromInt(1), time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	quotes := make([]Quote, 5)
	for i := range quotes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quotes[i] = p.Current(ctx)
		}(i)
	}
	wg.Wait()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if q := p.Current(ctx); q.Source != OriginFallback {
			t.Fatalf("Expected fallback quote, got %+v", q)
		}
	}
	if elapsed := time.Since(start); elapsed >= src.delay {
		t.Errorf("Expected degraded quotes without waiting on the source, took %s", elapsed)
	}

	for i, q := range quotes {
		if q.Source != OriginFallback || q.Warning == "" {
			t.Errorf("Caller %d: expected fallback with warning, got %+v", i, q)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("Expected 1 fetch during the outage, got %d", got)
	}
}

func TestRateProvider_RetriesAfterBackoff(t *testing.T) {
	src := &scriptedSource{results: []result{{err: errDown}, {rate: "1300"}}}
	p := NewRateProvider(src, decimal.NewFromInt(1), time.Minute).WithRetryBackoff(20 * time.Millisecond)
	ctx := context.Background()

	if q := p.Current(ctx); q.Source != OriginFallback {
		t.Fatalf("Expected fallback, got %+v", q)
	}
	if q := p.Current(ctx); q.Source != OriginFallback || src.calls.Load() != 1 {
		t.Fatalf("Expected degraded quote within backoff, got %+v after %d calls", q, src.calls.Load())
	}

	time.Sleep(40 * time.Millisecond)
	q := p.Current(ctx)
	if q.Source != OriginLive || !q.Rate.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("Expected live 1300 after backoff, got %+v", q)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("Expected 2 fetches, got %d", got)
	}
}

func TestRateProvider_RefreshBypassesBackoff(t *testing.T) {
	src := &scriptedSource{results: []result{{err: errDown}, {rate: "1250"}}}
	p := NewRateProvider(src, decimal.NewFromInt(1), time.Minute)
	ctx := context.Background()

	p.Current(ctx)
	if q := p.Refresh(ctx); q.Source != OriginLive {
		t.Errorf("Expected explicit refresh to fetch, got %+v", q)
	}
	if q := p.Current(ctx); q.Source != OriginLive || !q.Rate.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Expected live 1250 after recovery, got %+v", q)
	}
}
