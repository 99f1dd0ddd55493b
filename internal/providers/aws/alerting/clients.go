package awsalerting

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cwsvc "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	snssvc "github.com/aws/aws-sdk-go-v2/service/sns"
)

// cloudTrailAPIClient is the narrow CloudTrail interface for trail
// configuration, logging status, and event selectors.
type cloudTrailAPIClient interface {
	DescribeTrails(ctx context.Context, params *cloudtrailsvc.DescribeTrailsInput, optFns ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.DescribeTrailsOutput, error)
	GetTrailStatus(ctx context.Context, params *cloudtrailsvc.GetTrailStatusInput, optFns ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.GetTrailStatusOutput, error)
	GetEventSelectors(ctx context.Context, params *cloudtrailsvc.GetEventSelectorsInput, optFns ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.GetEventSelectorsOutput, error)
}

// logsAPIClient is the narrow CloudWatch Logs interface. It satisfies
// logssvc.DescribeMetricFiltersAPIClient so the SDK paginator can be used.
type logsAPIClient interface {
	DescribeMetricFilters(ctx context.Context, params *logssvc.DescribeMetricFiltersInput, optFns ...func(*logssvc.Options)) (*logssvc.DescribeMetricFiltersOutput, error)
}

// cloudWatchAPIClient is the narrow CloudWatch interface for alarm lookup.
type cloudWatchAPIClient interface {
	DescribeAlarmsForMetric(ctx context.Context, params *cwsvc.DescribeAlarmsForMetricInput, optFns ...func(*cwsvc.Options)) (*cwsvc.DescribeAlarmsForMetricOutput, error)
}

// snsAPIClient is the narrow SNS interface for topic subscription counts.
type snsAPIClient interface {
	GetTopicAttributes(ctx context.Context, params *snssvc.GetTopicAttributesInput, optFns ...func(*snssvc.Options)) (*snssvc.GetTopicAttributesOutput, error)
}

// alertClients bundles the AWS service clients used by DefaultGateway.
type alertClients struct {
	CloudTrail cloudTrailAPIClient
	Logs       logsAPIClient
	CloudWatch cloudWatchAPIClient
	SNS        snsAPIClient
}

// clientFactory creates the gateway's service clients from an AWS config.
// Injection point: tests replace it with a function returning fakes.
type clientFactory func(cfg aws.Config) *alertClients

// newDefaultAlertClients creates production AWS SDK clients from cfg.
func newDefaultAlertClients(cfg aws.Config) *alertClients {
	return &alertClients{
		CloudTrail: cloudtrailsvc.NewFromConfig(cfg),
		Logs:       logssvc.NewFromConfig(cfg),
		CloudWatch: cwsvc.NewFromConfig(cfg),
		SNS:        snssvc.NewFromConfig(cfg),
	}
}
