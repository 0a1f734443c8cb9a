package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// StatusError is a non-retryable HTTP error response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: status %d, body: %s", e.StatusCode, e.Body)
}

// get returns the response body for u, served from the disk cache when
// possible. Only successful responses are cached.
func (c *OpenMeteoClient) get(ctx context.Context, u string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.get(u); ok {
			c.logger.Info("Serving Open-Meteo response from cache", "dir", c.cache.dir)
			return body, nil
		}
		c.logger.Debug("Open-Meteo cache miss", "dir", c.cache.dir)
	}

	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.put(u, body); err != nil {
			c.logger.Warn("Failed to cache Open-Meteo response", "error", err)
		}
	}
	return body, nil
}

// getWithRetry performs the request with retries, exponential backoff and a
// circuit breaker. 429 and 5xx responses and transport errors are retried,
// other non-2xx statuses fail immediately.
func (c *OpenMeteoClient) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, u)
		})
		if err == nil {
			return result.([]byte), nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("failed to fetch weather data: %w", err)
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= c.backoff.MaxRetries {
			return nil, fmt.Errorf("failed to fetch weather data after %d attempts: %w", attempt+1, err)
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
		c.logger.Warn("Open-Meteo request failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func (c *OpenMeteoClient) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &StatusError{Body: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
