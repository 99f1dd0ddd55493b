package awsalerting

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwsvc "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// findAlarm returns the first metric alarm on (metricName, namespace) in the
// order CloudWatch lists them. An undefined pair never matches an alarm.
func findAlarm(ctx context.Context, client cloudWatchAPIClient, metricName, namespace string) (*models.Alarm, error) {
	if metricName == "" || namespace == "" {
		return nil, nil
	}
	out, err := client.DescribeAlarmsForMetric(ctx, &cwsvc.DescribeAlarmsForMetricInput{
		MetricName: aws.String(metricName),
		Namespace:  aws.String(namespace),
	})
	if err != nil {
		return nil, err
	}
	if len(out.MetricAlarms) == 0 {
		return nil, nil
	}
	a := out.MetricAlarms[0]
	if n := len(out.MetricAlarms); n > 1 {
		zerolog.Ctx(ctx).Debug().
			Str("metric", namespace+"/"+metricName).
			Str("alarm", aws.ToString(a.AlarmName)).
			Int("matches", n).
			Msg("several alarms watch the metric; using the first listed")
	}
	return &models.Alarm{
		Name:            aws.ToString(a.AlarmName),
		ARN:             aws.ToString(a.AlarmArn),
		MetricName:      aws.ToString(a.MetricName),
		MetricNamespace: aws.ToString(a.Namespace),
		AlarmActions:    append([]string(nil), a.AlarmActions...),
	}, nil
}
