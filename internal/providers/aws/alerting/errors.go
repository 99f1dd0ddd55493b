package awsalerting

import (
	"errors"

	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// isNotFound reports whether err is one of the AWS "does not exist" errors
// the gateway resolves to a nil resource.
func isNotFound(err error) bool {
	var (
		trailNF *cttypes.TrailNotFoundException
		logsNF  *logstypes.ResourceNotFoundException
		topicNF *snstypes.NotFoundException
	)
	return errors.As(err, &trailNF) || errors.As(err, &logsNF) || errors.As(err, &topicNF)
}
