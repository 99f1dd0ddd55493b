package awsalerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pankaj-dahiya-devops/alertchain/internal/metrics"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// ResilienceConfig bounds how long and how often the gateway talks to AWS.
type ResilienceConfig struct {
	// Attempts is the total number of tries per operation, including the first.
	Attempts uint
	// CallTimeout bounds each individual try.
	CallTimeout time.Duration
	// MaxBackoff caps the exponential delay between tries.
	MaxBackoff time.Duration
	// RatePerSecond and Burst configure the token bucket shared by all
	// operations of one gateway.
	RatePerSecond float64
	Burst         int
	// BreakerFailures consecutive failed operations open the breaker for
	// BreakerOpenFor.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// DefaultResilienceConfig returns settings that stay well inside the
// CloudTrail and CloudWatch control-plane quotas.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Attempts:        3,
		CallTimeout:     10 * time.Second,
		MaxBackoff:      5 * time.Second,
		RatePerSecond:   10,
		Burst:           5,
		BreakerFailures: 5,
		BreakerOpenFor:  30 * time.Second,
	}
}

// ResilientGateway decorates a Gateway with rate limiting, a circuit
// breaker, bounded retries, and a per-try timeout. Every error it returns
// wraps ErrGatewayUnavailable.
type ResilientGateway struct {
	next    Gateway
	region  string
	cfg     ResilienceConfig
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewResilientGateway wraps next. m may be nil.
func NewResilientGateway(next Gateway, region string, cfg ResilienceConfig, m *metrics.Metrics) *ResilientGateway {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alertchain-gateway-" + region,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			m.SetBreakerState(region, float64(to))
		},
	})

	return &ResilientGateway{
		next:    next,
		region:  region,
		cfg:     cfg,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		metrics: m,
	}
}

// ListTrails implements Gateway.
func (g *ResilientGateway) ListTrails(ctx context.Context) ([]models.Trail, error) {
	return call(ctx, g, "list_trails", g.next.ListTrails)
}

// GetTrail implements Gateway.
func (g *ResilientGateway) GetTrail(ctx context.Context, id string) (*models.Trail, error) {
	return call(ctx, g, "get_trail", func(ctx context.Context) (*models.Trail, error) {
		return g.next.GetTrail(ctx, id)
	})
}

// FindMetricFilter implements Gateway.
func (g *ResilientGateway) FindMetricFilter(ctx context.Context, pattern, logGroupName string) (*models.MetricFilter, error) {
	return call(ctx, g, "find_metric_filter", func(ctx context.Context) (*models.MetricFilter, error) {
		return g.next.FindMetricFilter(ctx, pattern, logGroupName)
	})
}

// FindAlarm implements Gateway.
func (g *ResilientGateway) FindAlarm(ctx context.Context, metricName, namespace string) (*models.Alarm, error) {
	return call(ctx, g, "find_alarm", func(ctx context.Context) (*models.Alarm, error) {
		return g.next.FindAlarm(ctx, metricName, namespace)
	})
}

// GetTopic implements Gateway.
func (g *ResilientGateway) GetTopic(ctx context.Context, arn string) (*models.NotificationTopic, error) {
	return call(ctx, g, "get_topic", func(ctx context.Context) (*models.NotificationTopic, error) {
		return g.next.GetTopic(ctx, arn)
	})
}

// call runs fn behind the limiter, the breaker, and the retry loop.
func call[T any](ctx context.Context, g *ResilientGateway, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	defer func() { g.metrics.ObserveGatewayCall(g.region, op, time.Since(start).Seconds()) }()

	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.IncGatewayError(g.region, op, "rate_limit")
		return zero, fmt.Errorf("%w: %s: rate limit: %w", ErrGatewayUnavailable, op, err)
	}

	var result T
	_, err := g.cb.Execute(func() (interface{}, error) {
		var lastErr error
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(g.cfg.Attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				d := retry.BackOffDelay(n, err, config)
				if g.cfg.MaxBackoff > 0 && d > g.cfg.MaxBackoff {
					return g.cfg.MaxBackoff
				}
				return d
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
			defer cancel()

			v, callErr := fn(tCtx)
			if callErr != nil {
				lastErr = callErr
				zerolog.Ctx(ctx).Debug().Err(callErr).Str("region", g.region).Str("op", op).Msg("gateway call failed")
				return callErr
			}
			result = v
			return nil
		})
		if retryErr != nil {
			if lastErr == nil {
				lastErr = retryErr
			}
			return nil, lastErr
		}
		return nil, nil
	})
	if err != nil {
		g.metrics.IncGatewayError(g.region, op, errorCause(err))
		if !errors.Is(err, ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %s: %w", ErrGatewayUnavailable, op, err)
		}
		return zero, err
	}
	return result, nil
}

// errorCause labels a failure for the gateway error counter.
func errorCause(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
