package awsalerting

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// DefaultGateway is the production Gateway. It reads CloudTrail, CloudWatch
// Logs, CloudWatch, and SNS through the AWS SDK v2 in a single region.
//
// Inject fake clients via NewDefaultGatewayWithFactory in unit tests.
type DefaultGateway struct {
	region  string
	clients *alertClients
}

// NewDefaultGateway returns a gateway backed by real SDK clients for cfg.Region.
func NewDefaultGateway(cfg aws.Config) *DefaultGateway {
	return NewDefaultGatewayWithFactory(cfg, newDefaultAlertClients)
}

// NewDefaultGatewayWithFactory returns a gateway whose clients come from f.
func NewDefaultGatewayWithFactory(cfg aws.Config, f clientFactory) *DefaultGateway {
	return &DefaultGateway{region: cfg.Region, clients: f(cfg)}
}

// Region returns the region the gateway reads from.
func (g *DefaultGateway) Region() string { return g.region }

// ListTrails implements Gateway.
func (g *DefaultGateway) ListTrails(ctx context.Context) ([]models.Trail, error) {
	trails, err := describeTrails(ctx, g.clients.CloudTrail, nil)
	if err != nil {
		return nil, unavailable("describe trails", err)
	}
	zerolog.Ctx(ctx).Debug().Str("region", g.region).Int("trails", len(trails)).Msg("listed trails")
	return trails, nil
}

// GetTrail implements Gateway. The trail is hydrated with its logging status
// and event selectors; both calls use the trail ARN so shadow copies of
// multi-region trails homed elsewhere resolve correctly.
func (g *DefaultGateway) GetTrail(ctx context.Context, id string) (*models.Trail, error) {
	trails, err := describeTrails(ctx, g.clients.CloudTrail, []string{id})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, unavailable(fmt.Sprintf("describe trail %q", id), err)
	}
	if len(trails) == 0 {
		return nil, nil
	}
	trail := trails[0]

	logging, found, err := trailIsLogging(ctx, g.clients.CloudTrail, trail.ID())
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get trail status %q", id), err)
	}
	if !found {
		return nil, nil
	}
	trail.IsLogging = logging

	selectors, err := trailEventSelectors(ctx, g.clients.CloudTrail, trail.ID())
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get event selectors %q", id), err)
	}
	trail.EventSelectors = selectors
	return &trail, nil
}

// FindMetricFilter implements Gateway.
func (g *DefaultGateway) FindMetricFilter(ctx context.Context, pattern, logGroupName string) (*models.MetricFilter, error) {
	f, err := findMetricFilter(ctx, g.clients.Logs, pattern, logGroupName)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("describe metric filters (log group %q)", logGroupName), err)
	}
	return f, nil
}

// FindAlarm implements Gateway.
func (g *DefaultGateway) FindAlarm(ctx context.Context, metricName, namespace string) (*models.Alarm, error) {
	a, err := findAlarm(ctx, g.clients.CloudWatch, metricName, namespace)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("describe alarms for metric %s/%s", namespace, metricName), err)
	}
	return a, nil
}

// GetTopic implements Gateway.
func (g *DefaultGateway) GetTopic(ctx context.Context, arn string) (*models.NotificationTopic, error) {
	t, err := getTopic(ctx, g.clients.SNS, arn)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get topic attributes %q", arn), err)
	}
	return t, nil
}

// unavailable wraps a data-source failure so callers can detect it with
// errors.Is(err, ErrGatewayUnavailable) while keeping the SDK error.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGatewayUnavailable, op, err)
}
