// Package arns recovers relationships that the AWS APIs only expose as ARN
// text, such as the CloudWatch Logs log group a trail delivers to.
package arns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ErrUnparseable is returned when an ARN is present but does not have the
// expected shape.
var ErrUnparseable = errors.New("unparseable ARN")

// logGroupPattern captures the segment between "log-group:" and the next ":".
var logGroupPattern = regexp.MustCompile(`log-group:([^:]+):`)

// LogGroupARN is the structured form of a CloudWatch Logs log-group ARN,
// e.g. arn:aws:logs:eu-west-1:111111111111:log-group:NewGroup:*.
type LogGroupARN struct {
	Partition string
	Region    string
	AccountID string
	Name      string
}

// ExtractLogGroupName returns the log group name embedded in a trail's
// CloudWatchLogsLogGroupArn. The second result is false when s is empty or
// carries no "log-group:<name>:" segment; that is an expected outcome, not
// an error.
func ExtractLogGroupName(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	m := logGroupPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseLogGroupARN parses s into its partition, region, account, and log
// group name. It returns ErrUnparseable when s is not a logs ARN naming a
// log group.
func ParseLogGroupARN(s string) (LogGroupARN, error) {
	a, err := arn.Parse(s)
	if err != nil {
		return LogGroupARN{}, fmt.Errorf("%w %q: %v", ErrUnparseable, s, err)
	}
	if a.Service != "logs" {
		return LogGroupARN{}, fmt.Errorf("%w %q: service %q is not logs", ErrUnparseable, s, a.Service)
	}
	name, ok := ExtractLogGroupName(s)
	if !ok {
		return LogGroupARN{}, fmt.Errorf("%w %q: no log-group segment", ErrUnparseable, s)
	}
	return LogGroupARN{
		Partition: a.Partition,
		Region:    a.Region,
		AccountID: a.AccountID,
		Name:      name,
	}, nil
}

// ContainsLogGroup reports whether s literally contains the segment
// "log-group:<name>:". It is a containment test, not an equality test.
func ContainsLogGroup(s, name string) bool {
	if s == "" || name == "" {
		return false
	}
	return strings.Contains(s, "log-group:"+name+":")
}

// IsTopicARN reports whether s is a well-formed SNS topic ARN.
func IsTopicARN(s string) bool {
	if !arn.IsARN(s) {
		return false
	}
	a, err := arn.Parse(s)
	if err != nil {
		return false
	}
	return a.Service == "sns" && a.Resource != "" && !strings.Contains(a.Resource, ":")
}
