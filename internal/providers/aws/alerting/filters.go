package awsalerting

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// findMetricFilter pages through DescribeMetricFilters and returns the first
// filter whose pattern equals pattern, in listing order. Further matches on
// the same page are only logged. A missing log group is not an error.
func findMetricFilter(ctx context.Context, client logsAPIClient, pattern, logGroupName string) (*models.MetricFilter, error) {
	input := &logssvc.DescribeMetricFiltersInput{}
	if logGroupName != "" {
		input.LogGroupName = aws.String(logGroupName)
	}

	p := logssvc.NewDescribeMetricFiltersPaginator(client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		var found *models.MetricFilter
		matches := 0
		for _, f := range page.MetricFilters {
			if aws.ToString(f.FilterPattern) != pattern {
				continue
			}
			matches++
			if found == nil {
				mf := toMetricFilter(f)
				found = &mf
			}
		}
		if found != nil {
			if matches > 1 {
				zerolog.Ctx(ctx).Debug().
					Str("log_group", logGroupName).
					Str("filter", found.Name).
					Int("matches", matches).
					Msg("several metric filters match the pattern; using the first listed")
			}
			return found, nil
		}
	}
	return nil, nil
}

// toMetricFilter converts an SDK metric filter. Only the first metric
// transformation is considered; CloudWatch Logs allows exactly one.
func toMetricFilter(f logstypes.MetricFilter) models.MetricFilter {
	mf := models.MetricFilter{
		Name:         aws.ToString(f.FilterName),
		LogGroupName: aws.ToString(f.LogGroupName),
		Pattern:      aws.ToString(f.FilterPattern),
	}
	if len(f.MetricTransformations) > 0 {
		mf.MetricName = aws.ToString(f.MetricTransformations[0].MetricName)
		mf.MetricNamespace = aws.ToString(f.MetricTransformations[0].MetricNamespace)
	}
	return mf
}
