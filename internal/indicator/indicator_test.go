package indicator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

const gdpBody = `[{"page":1,"pages":1,"per_page":1,"total":1},[{"indicator":{"id":"NY.GDP.MKTP.CD"},"country":{"id":"UG"},"date":"2023","value":49273205027.5}]]`

func testConfig(baseURL string) config.IndicatorConfig {
	return config.IndicatorConfig{
		Enabled:  true,
		BaseURL:  baseURL,
		Country:  "UGA",
		Year:     2023,
		TTL:      time.Hour,
		Timeout:  2 * time.Second,
		RetryMax: 0,
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestFetchSuccess(t *testing.T) {
	var gotPath, gotQuery string
	server, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, gdpBody)
	})

	client := NewClient(testConfig(server.URL), zap.NewNop())
	value, err := client.Fetch(context.Background(), constants.IndicatorGDP)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if value != 49273205027.5 {
		t.Errorf("Fetch() = %v, expected 49273205027.5", value)
	}
	if gotPath != "/country/UGA/indicator/NY.GDP.MKTP.CD" {
		t.Errorf("request path = %s", gotPath)
	}
	for _, param := range []string{"format=json", "per_page=1", "date=2023"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("request query %q missing %s", gotQuery, param)
		}
	}

	if _, err := client.Fetch(context.Background(), constants.IndicatorGDP); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits = %d, expected 1 (cached)", got)
	}
}

func TestFetchFailuresAreUnavailableAndCached(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"Server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"Malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"page":1},[{"value":`)
		}},
		{"Null value", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"page":1},[{"date":"2023","value":null}]]`)
		}},
		{"Error message body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"message":[{"id":"120","key":"Invalid value"}]}]`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := newTestServer(t, tt.handler)
			client := NewClient(testConfig(server.URL), zap.NewNop())

			_, err := client.Fetch(context.Background(), constants.IndicatorPopulation)
			if !apperrors.HasCode(err, apperrors.CodeIndicatorUnavailable) {
				t.Fatalf("Fetch() error = %v, expected INDICATOR_UNAVAILABLE", err)
			}

			reading := client.Lookup(context.Background(), constants.IndicatorPopulation)
			if reading.Available {
				t.Errorf("Lookup() Available = true, expected false")
			}
			if reading.Label != "Population" || reading.Year != 2023 {
				t.Errorf("Lookup() = %+v", reading)
			}
			if got := atomic.LoadInt32(hits); got != 1 {
				t.Errorf("server hits = %d, expected 1 (failure cached)", got)
			}
		})
	}
}

func TestFetchCacheExpires(t *testing.T) {
	server, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gdpBody)
	})

	client := NewClient(testConfig(server.URL), zap.NewNop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	client.Lookup(context.Background(), constants.IndicatorGDP)
	now = now.Add(59 * time.Minute)
	client.Lookup(context.Background(), constants.IndicatorGDP)
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits before expiry = %d, expected 1", got)
	}

	now = now.Add(2 * time.Minute)
	client.Lookup(context.Background(), constants.IndicatorGDP)
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("server hits after expiry = %d, expected 2", got)
	}
}

func TestFetchConcurrentCallsShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	server, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, gdpBody)
	})

	client := NewClient(testConfig(server.URL), zap.NewNop())

	var wg sync.WaitGroup
	readings := make([]Reading, 8)
	for i := range readings {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			readings[i] = client.Lookup(context.Background(), constants.IndicatorGDP)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, reading := range readings {
		if !reading.Available || reading.Value != 49273205027.5 {
			t.Errorf("reading %d = %+v", i, reading)
		}
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits = %d, expected 1", got)
	}
}

func TestFetchCancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		fmt.Fprint(w, gdpBody)
	})

	client := NewClient(testConfig(server.URL), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Fetch(ctx, constants.IndicatorGDP)
		firstErr <- err
	}()

	<-started
	cancel()
	if err := <-firstErr; !apperrors.HasCode(err, apperrors.CodeIndicatorUnavailable) {
		t.Errorf("cancelled Fetch() error = %v, expected INDICATOR_UNAVAILABLE", err)
	}

	second := make(chan Reading, 1)
	go func() {
		second <- client.Lookup(context.Background(), constants.IndicatorGDP)
	}()
	close(release)

	if reading := <-second; !reading.Available || reading.Value != 49273205027.5 {
		t.Errorf("second Lookup() = %+v, expected the shared value", reading)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits = %d, expected 1", got)
	}
}

func TestFetchAllPreservesOrder(t *testing.T) {
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, constants.IndicatorGDP):
			fmt.Fprint(w, gdpBody)
		case strings.Contains(r.URL.Path, constants.IndicatorPopulation):
			fmt.Fprint(w, `[{"page":1},[{"date":"2023","value":48582334}]]`)
		default:
			http.NotFound(w, r)
		}
	})

	client := NewClient(testConfig(server.URL), zap.NewNop())
	codes := []string{constants.IndicatorPopulation, "XX.MISSING", constants.IndicatorGDP}

	readings := <-client.Prefetch(context.Background(), codes)
	if len(readings) != 3 {
		t.Fatalf("Prefetch() returned %d readings, expected 3", len(readings))
	}

	expected := []struct {
		code      string
		label     string
		available bool
		value     float64
	}{
		{constants.IndicatorPopulation, "Population", true, 48582334},
		{"XX.MISSING", "XX.MISSING", false, 0},
		{constants.IndicatorGDP, "GDP (current US$)", true, 49273205027.5},
	}
	for i, want := range expected {
		got := readings[i]
		if got.Code != want.code || got.Label != want.label || got.Available != want.available || got.Value != want.value {
			t.Errorf("reading %d = %+v, expected %+v", i, got, want)
		}
	}
}

func TestFetchDisabled(t *testing.T) {
	server, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gdpBody)
	})

	cfg := testConfig(server.URL)
	cfg.Enabled = false
	client := NewClient(cfg, nil)

	if _, err := client.Fetch(context.Background(), constants.IndicatorGDP); !apperrors.HasCode(err, apperrors.CodeIndicatorUnavailable) {
		t.Errorf("Fetch() error = %v, expected INDICATOR_UNAVAILABLE", err)
	}
	if got := atomic.LoadInt32(hits); got != 0 {
		t.Errorf("server hits = %d, expected 0", got)
	}
}

func TestProjectionIndependentOfIndicators(t *testing.T) {
	p := projection.Parameters{
		BaselineTaxBase:       5000,
		AdoptionRate:          50,
		ComplianceImprovement: 20,
		TaxRate:               15,
		Macro:                 &projection.Macro{InflationRate: 5, PopulationGrowthRate: 3, GDPImpactFactor: 0.5},
	}
	before := projection.Project(p, projection.DefaultConfig(5))

	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	client := NewClient(testConfig(server.URL), zap.NewNop())
	client.FetchAll(context.Background(), []string{constants.IndicatorGDP, constants.IndicatorPopulation})

	if after := projection.Project(p, projection.DefaultConfig(5)); !reflect.DeepEqual(before, after) {
		t.Errorf("projection changed after indicator failure")
	}
}

func TestLabel(t *testing.T) {
	if got := Label(constants.IndicatorGDP); got != "GDP (current US$)" {
		t.Errorf("Label(GDP) = %q", got)
	}
	if got := Label("FOO"); got != "FOO" {
		t.Errorf("Label(FOO) = %q, expected FOO", got)
	}
}
