// Package awsalerting supplies point-in-time snapshots of the resources that
// make up a CloudTrail alerting chain: trails, CloudWatch Logs metric filters,
// CloudWatch alarms, and SNS topics.
//
// Implementations never apply compliance logic. A resource that does not
// exist is reported as (nil, nil); every returned error means the data source
// could not be reached and wraps ErrGatewayUnavailable.
package awsalerting

import (
	"context"
	"errors"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// ErrGatewayUnavailable marks errors caused by the data source being
// unreachable, throttled past the retry budget, or short-circuited by the
// breaker. Callers test for it with errors.Is.
var ErrGatewayUnavailable = errors.New("resource gateway unavailable")

// Gateway is the read-only resource source consumed by the chain resolver.
// Every call is idempotent. Returned values must be treated as read-only
// because snapshot implementations share them between concurrent callers.
type Gateway interface {
	// ListTrails returns every trail visible from the gateway's region,
	// including multi-region trails homed elsewhere, in discovery order.
	// IsLogging and EventSelectors are not populated.
	ListTrails(ctx context.Context) ([]models.Trail, error)

	// GetTrail returns the fully hydrated trail identified by name or ARN,
	// or nil when it does not exist.
	GetTrail(ctx context.Context, id string) (*models.Trail, error)

	// FindMetricFilter returns the first metric filter whose stored pattern
	// equals pattern exactly. An empty logGroupName searches every log group.
	FindMetricFilter(ctx context.Context, pattern, logGroupName string) (*models.MetricFilter, error)

	// FindAlarm returns the first alarm on (metricName, namespace), or nil.
	FindAlarm(ctx context.Context, metricName, namespace string) (*models.Alarm, error)

	// GetTopic returns the SNS topic with the given ARN, or nil when it does
	// not exist or the ARN is not an SNS topic ARN.
	GetTopic(ctx context.Context, arn string) (*models.NotificationTopic, error)
}
