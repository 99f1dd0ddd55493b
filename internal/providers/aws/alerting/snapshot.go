package awsalerting

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// SnapshotGateway memoizes a Gateway for the duration of one evaluation run,
// so every rule evaluated in that run observes the same resource state and
// each distinct lookup reaches AWS at most once. Each run builds a fresh
// snapshot. Concurrent identical lookups are collapsed. Errors are not cached.
type SnapshotGateway struct {
	next  Gateway
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]any
}

// NewSnapshotGateway returns an empty snapshot over next.
func NewSnapshotGateway(next Gateway) *SnapshotGateway {
	return &SnapshotGateway{next: next, cache: make(map[string]any)}
}

// ListTrails implements Gateway.
func (s *SnapshotGateway) ListTrails(ctx context.Context) ([]models.Trail, error) {
	return memo(ctx, s, "trails", s.next.ListTrails)
}

// GetTrail implements Gateway.
func (s *SnapshotGateway) GetTrail(ctx context.Context, id string) (*models.Trail, error) {
	return memo(ctx, s, "trail\x00"+id, func(ctx context.Context) (*models.Trail, error) {
		return s.next.GetTrail(ctx, id)
	})
}

// FindMetricFilter implements Gateway.
func (s *SnapshotGateway) FindMetricFilter(ctx context.Context, pattern, logGroupName string) (*models.MetricFilter, error) {
	return memo(ctx, s, "filter\x00"+logGroupName+"\x00"+pattern, func(ctx context.Context) (*models.MetricFilter, error) {
		return s.next.FindMetricFilter(ctx, pattern, logGroupName)
	})
}

// FindAlarm implements Gateway.
func (s *SnapshotGateway) FindAlarm(ctx context.Context, metricName, namespace string) (*models.Alarm, error) {
	return memo(ctx, s, "alarm\x00"+namespace+"\x00"+metricName, func(ctx context.Context) (*models.Alarm, error) {
		return s.next.FindAlarm(ctx, metricName, namespace)
	})
}

// GetTopic implements Gateway.
func (s *SnapshotGateway) GetTopic(ctx context.Context, arn string) (*models.NotificationTopic, error) {
	return memo(ctx, s, "topic\x00"+arn, func(ctx context.Context) (*models.NotificationTopic, error) {
		return s.next.GetTopic(ctx, arn)
	})
}

func memo[T any](ctx context.Context, s *SnapshotGateway, key string, fn func(context.Context) (T, error)) (T, error) {
	s.mu.Lock()
	if v, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return v.(T), nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// A caller that missed the cache may arrive after the flight that
		// filled it has finished.
		s.mu.Lock()
		if v, ok := s.cache[key]; ok {
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		r, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = r
		s.mu.Unlock()
		return r, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
