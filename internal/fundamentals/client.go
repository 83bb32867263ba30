package fundamentals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/pkg/circuitbreaker"
	"github.com/research-analyst/backend/pkg/logger"
	"github.com/research-analyst/backend/pkg/retry"
)

var (
	ErrNotFound         = errors.New("company not found")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrParse            = errors.New("unrecognized company page")
)

// Fetcher returns the key metrics for the company identified by slug.
type Fetcher interface {
	Fetch(ctx context.Context, slug string) (*Summary, error)
}

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retry     retry.Config
	Breaker   circuitbreaker.Config
}

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.screener.in"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Once()
	}
	cfg.Retry.Retryable = isTransient
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = logger.GetLogger()
	}

	cfg.Breaker.IsSuccessful = upstreamAnswered
	if cfg.Breaker.Logger == nil {
		cfg.Breaker.Logger = logger.GetLogger()
	}
	onStateChange := cfg.Breaker.OnStateChange
	cfg.Breaker.OnStateChange = func(name string, from, to circuitbreaker.State) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:   cfg.Retry,
		breaker: circuitbreaker.NewCircuitBreaker("fundamentals", cfg.Breaker),
	}
}

func (c *Client) Fetch(ctx context.Context, slug string) (*Summary, error) {
	start := time.Now()
	logger.Debug("Fetching fundamentals", zap.String("slug", slug))

	summary, err := retry.DoWithResult(ctx, c.retry, func() (*Summary, error) {
		var s *Summary
		err := c.breaker.Execute(ctx, func() error {
			var err error
			s, err = c.fetchOnce(ctx, slug)
			return err
		})
		return s, err
	})

	if err != nil {
		metrics.FetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.FetchFailures.WithLabelValues(failureReason(err)).Inc()
		logger.Warn("Fundamentals fetch failed", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}

	metrics.FetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	logger.Info("Fundamentals fetched",
		zap.String("slug", slug),
		zap.String("company", summary.Company()),
		zap.Int("metrics", summary.Len()),
		zap.Duration("duration", time.Since(start)),
	)

	return summary, nil
}

func (c *Client) URL(slug string) string {
	return fmt.Sprintf("%s/company/%s/consolidated/", c.baseURL, url.PathEscape(slug))
}

func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func (c *Client) fetchOnce(ctx context.Context, slug string) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(slug), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", slug, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s: %w %d", slug, ErrUnexpectedStatus, resp.StatusCode)
	}

	summary, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slug, err)
	}
	return summary, nil
}

func isTransient(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrParse) &&
		!errors.Is(err, circuitbreaker.ErrCircuitOpen) &&
		!errors.Is(err, circuitbreaker.ErrTooManyRequests)
}

func upstreamAnswered(err error) bool {
	return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrParse)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network"
	}
}
