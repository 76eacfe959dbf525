package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is the retry policy used by providers unless overridden.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	Logger  *zap.Logger
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errClientError   = errors.New("client error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newCircuitBreaker builds the per-provider breaker. Lookups for unknown
// places and other client errors say nothing about provider health, so they
// do not count as failures.
func newCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			return err == nil || permanent(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// permanent reports whether retrying err cannot help.
func permanent(err error) bool {
	return errors.Is(err, weather.ErrLocationNotFound) || errors.Is(err, errClientError)
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. The caller owns the returned response body.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if statusErr := checkStatus(resp.StatusCode); statusErr != nil {
				resp.Body.Close()
				return nil, statusErr
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if permanent(err) {
			return nil, err
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		logger.Debug("Retrying provider request",
			zap.String("provider", cb.Name()),
			zap.String("path", req.URL.Path),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

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

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return weather.ErrLocationNotFound
	case code == http.StatusTooManyRequests:
		return errRateLimited
	case code >= 500:
		return fmt.Errorf("%w: %d", errServerError, code)
	case code >= 400:
		return fmt.Errorf("%w: %d", errClientError, code)
	default:
		return fmt.Errorf("%w: %d", errUnexpected, code)
	}
}
