package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
	"github.com/couchcryptid/meteo-etl-service/internal/observability"
)

const (
	opFetch = "fetch forecast"

	// HourlyField is the only hourly series requested.
	HourlyField = "temperature_2m"

	maxBodyBytes = 32 << 20
)

// Client implements pipeline.Extractor against the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	latitude   float64
	longitude  float64
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a forecast client for a fixed location. Each Fetch is
// bounded by timeout.
func NewClient(baseURL string, lat, lon float64, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		baseURL:    baseURL,
		latitude:   lat,
		longitude:  lon,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport failures count against the endpoint.
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrTimeout))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if metrics == nil {
				return
			}
			if to == gobreaker.StateOpen {
				metrics.FetchBreakerOpen.Set(1)
			} else {
				metrics.FetchBreakerOpen.Set(0)
			}
		},
	})
	return c
}

// URL returns the fully qualified forecast request URL.
func (c *Client) URL() string {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(c.latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(c.longitude, 'f', -1, 64)},
		"hourly":    {HourlyField},
	}
	return c.baseURL + "?" + params.Encode()
}

// Fetch issues a single GET for the configured location and decodes the
// forecast document. It never retries.
func (c *Client) Fetch(ctx context.Context) (domain.ForecastResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.ForecastResponse{}, domain.NewError(domain.ErrNetwork, opFetch, err)
		}
		return domain.ForecastResponse{}, err
	}
	return out.(domain.ForecastResponse), nil
}

func (c *Client) doRequest(ctx context.Context) (domain.ForecastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return domain.ForecastResponse{}, domain.NewError(domain.ErrNetwork, opFetch, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting forecast", "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ForecastResponse{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ForecastResponse{}, domain.Errorf(domain.ErrNetwork, opFetch,
			"open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.ForecastResponse{}, classifyTransport(err)
	}

	var forecast domain.ForecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return domain.ForecastResponse{}, domain.NewError(domain.ErrParse, opFetch, fmt.Errorf("decode response: %w", err))
	}
	if forecast.Hourly == nil {
		return domain.ForecastResponse{}, domain.Errorf(domain.ErrParse, opFetch, "response has no hourly object")
	}
	return forecast, nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewError(domain.ErrTimeout, opFetch, err)
	}
	return domain.NewError(domain.ErrNetwork, opFetch, err)
}
