package awsalerting

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	snssvc "github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/pankaj-dahiya-devops/alertchain/internal/arns"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

const attrSubscriptionsConfirmed = "SubscriptionsConfirmed"

// getTopic reads the confirmed subscription count of an SNS topic. Alarm
// actions that are not SNS topics (Auto Scaling policies, EC2 actions) are
// reported as missing topics without calling SNS.
func getTopic(ctx context.Context, client snsAPIClient, arn string) (*models.NotificationTopic, error) {
	if !arns.IsTopicARN(arn) {
		return nil, nil
	}
	out, err := client.GetTopicAttributes(ctx, &snssvc.GetTopicAttributesInput{TopicArn: aws.String(arn)})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	// A count SNS does not report, or cannot be parsed, is treated as zero.
	confirmed, _ := strconv.Atoi(out.Attributes[attrSubscriptionsConfirmed])
	return &models.NotificationTopic{ARN: arn, ConfirmedSubscriptionCount: confirmed}, nil
}
