// Package indicator fetches headline economic indicators from the World Bank
// API for display next to the projections. The values are informational:
// nothing here feeds the projection engine.
package indicator

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
)

const maxBodyBytes = 1 << 20

var labels = map[string]string{
	constants.IndicatorGDP:        "GDP (current US$)",
	constants.IndicatorPopulation: "Population",
}

// Label returns the display label for an indicator code, or the code itself
// when it is not a known indicator.
func Label(code string) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return code
}

// Reading is the outcome of one indicator lookup. A failed fetch is a
// Reading with Available set to false, never an error.
type Reading struct {
	Code      string  `json:"code"`
	Label     string  `json:"label"`
	Year      int     `json:"year"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

type entry struct {
	value   float64
	err     error
	expires time.Time
}

// Client fetches indicators and caches both values and failures per code.
type Client struct {
	cfg    config.IndicatorConfig
	http   *retryablehttp.Client
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]entry
	group singleflight.Group

	now func() time.Time
}

// NewClient builds a client from the indicator configuration. Zero values
// fall back to the package defaults.
func NewClient(cfg config.IndicatorConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultIndicatorBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = constants.DefaultIndicatorCountry
	}
	if cfg.Year == 0 {
		cfg.Year = constants.DefaultIndicatorYear
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = cfg.Timeout

	return &Client{
		cfg:    cfg,
		http:   retryClient,
		logger: logger,
		cache:  make(map[string]entry),
		now:    time.Now,
	}
}

// Year is the reference year requested from the API.
func (c *Client) Year() int {
	return c.cfg.Year
}

// Fetch returns the indicator value for code. Results, failures included,
// are cached for the configured TTL and concurrent fetches of the same code
// share one request. Failures carry CodeIndicatorUnavailable.
func (c *Client) Fetch(ctx context.Context, code string) (float64, error) {
	if !c.cfg.Enabled {
		return 0, unavailable(code, "indicator fetch is disabled", nil)
	}
	if e, ok := c.cached(code); ok {
		return e.value, e.err
	}

	// The shared request outlives any single caller's context and is bounded
	// by the client's own timeout and retry budget instead.
	ch := c.group.DoChan(code, func() (interface{}, error) {
		if e, ok := c.cached(code); ok {
			return e.value, e.err
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchBudget())
		defer cancel()
		value, err := c.fetch(fetchCtx, code)
		c.store(code, value, err)
		return value, err
	})

	select {
	case <-ctx.Done():
		return 0, unavailable(code, "indicator fetch cancelled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

// fetchBudget covers every attempt plus the waits between retries.
func (c *Client) fetchBudget() time.Duration {
	attempts := time.Duration(c.cfg.RetryMax + 1)
	return attempts*c.cfg.Timeout + time.Duration(c.cfg.RetryMax)*c.http.RetryWaitMax
}

// Lookup fetches code and folds any failure into an unavailable Reading.
func (c *Client) Lookup(ctx context.Context, code string) Reading {
	reading := Reading{Code: code, Label: Label(code), Year: c.cfg.Year}
	value, err := c.Fetch(ctx, code)
	if err != nil {
		c.logger.Warn("indicator unavailable",
			zap.String("op", "indicator.Lookup"),
			zap.String("indicator", code),
			zap.Error(err),
		)
		return reading
	}
	reading.Value = value
	reading.Available = true
	return reading
}

// FetchAll looks up every code concurrently. Readings keep the order of codes.
func (c *Client) FetchAll(ctx context.Context, codes []string) []Reading {
	readings := make([]Reading, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			readings[i] = c.Lookup(gctx, code)
			return nil
		})
	}
	_ = g.Wait()
	return readings
}

// Prefetch runs FetchAll in the background. The channel receives one slice
// and is then closed.
func (c *Client) Prefetch(ctx context.Context, codes []string) <-chan []Reading {
	out := make(chan []Reading, 1)
	go func() {
		defer close(out)
		out <- c.FetchAll(ctx, codes)
	}()
	return out
}

func (c *Client) fetch(ctx context.Context, code string) (float64, error) {
	endpoint := fmt.Sprintf("%s/country/%s/indicator/%s?format=json&per_page=1&date=%d",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Country), url.PathEscape(code), c.cfg.Year)

	c.logger.Debug("fetching indicator",
		zap.String("op", "indicator.fetch"),
		zap.String("indicator", code),
		zap.String("url", endpoint),
	)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, unavailable(code, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, unavailable(code, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, unavailable(code, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, unavailable(code, "failed to read response", err)
	}
	if !gjson.ValidBytes(body) {
		return 0, unavailable(code, "malformed response body", nil)
	}

	// The API answers [paging, [observation, ...]].
	value := gjson.GetBytes(body, "1.0.value")
	if value.Type != gjson.Number {
		return 0, unavailable(code, "no value reported", nil)
	}
	return value.Float(), nil
}

func (c *Client) cached(code string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[code]
	if !ok || !c.now().Before(e.expires) {
		return entry{}, false
	}
	return e, true
}

func (c *Client) store(code string, value float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[code] = entry{value: value, err: err, expires: c.now().Add(c.cfg.TTL)}
}

func unavailable(code, message string, cause error) error {
	meta := map[string]string{"indicator": code}
	if cause != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeIndicatorUnavailable, message, meta, cause)
	}
	return apperrors.WithMetadata(apperrors.CodeIndicatorUnavailable, message, meta)
}
