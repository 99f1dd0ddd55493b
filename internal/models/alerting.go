package models

// ---------------------------------------------------------------------------
// Alerting-chain resource models (supplied by the gateway, consumed by rules)
// ---------------------------------------------------------------------------

// ReadWriteType is the read/write scope of a CloudTrail management event selector.
type ReadWriteType string

const (
	ReadWriteReadOnly  ReadWriteType = "ReadOnly"
	ReadWriteWriteOnly ReadWriteType = "WriteOnly"
	ReadWriteAll       ReadWriteType = "All"
)

// EventSelector is one management event selector of a trail, in the order
// CloudTrail reports them.
type EventSelector struct {
	IncludeManagementEvents bool          `json:"include_management_events"`
	ReadWriteType           ReadWriteType `json:"read_write_type"`
}

// Trail is a point-in-time snapshot of a CloudTrail trail.
// LogGroupARN is empty when the trail has no CloudWatch Logs integration.
// IsLogging and EventSelectors are only populated by Gateway.GetTrail;
// ListTrails returns the configuration fields only.
type Trail struct {
	Name           string          `json:"name"`
	ARN            string          `json:"arn"`
	HomeRegion     string          `json:"home_region,omitempty"`
	IsMultiRegion  bool            `json:"is_multi_region"`
	IsLogging      bool            `json:"is_logging"`
	LogGroupARN    string          `json:"log_group_arn,omitempty"`
	EventSelectors []EventSelector `json:"event_selectors,omitempty"`
}

// ID returns the identifier used to look the trail up again: its ARN when
// known, otherwise its name.
func (t Trail) ID() string {
	if t.ARN != "" {
		return t.ARN
	}
	return t.Name
}

// CapturesAllManagementEvents reports whether at least one selector includes
// management events for both reads and writes.
func (t Trail) CapturesAllManagementEvents() bool {
	for _, s := range t.EventSelectors {
		if s.IncludeManagementEvents && s.ReadWriteType == ReadWriteAll {
			return true
		}
	}
	return false
}

// Compliant reports whether the trail can back an alerting chain: it must be
// multi-region, actively logging, and capture all management events.
func (t Trail) Compliant() bool {
	return t.IsMultiRegion && t.IsLogging && t.CapturesAllManagementEvents()
}

// MetricFilter is a CloudWatch Logs metric filter matched by its literal
// filter pattern. MetricName and MetricNamespace come from the first metric
// transformation and are both empty when the filter publishes no metric.
type MetricFilter struct {
	Name            string `json:"name"`
	LogGroupName    string `json:"log_group_name"`
	Pattern         string `json:"pattern"`
	MetricName      string `json:"metric_name,omitempty"`
	MetricNamespace string `json:"metric_namespace,omitempty"`
}

// HasMetric reports whether the filter yields a (metric name, namespace) pair.
// Only a fully absent pair counts as undefined.
func (f MetricFilter) HasMetric() bool {
	return f.MetricName != "" || f.MetricNamespace != ""
}

// Alarm is a CloudWatch metric alarm keyed by (MetricName, MetricNamespace).
type Alarm struct {
	Name            string   `json:"name"`
	ARN             string   `json:"arn,omitempty"`
	MetricName      string   `json:"metric_name"`
	MetricNamespace string   `json:"metric_namespace"`
	AlarmActions    []string `json:"alarm_actions"`
}

// NotificationTopic is an SNS topic with its confirmed subscriber count.
type NotificationTopic struct {
	ARN                        string `json:"arn"`
	ConfirmedSubscriptionCount int    `json:"confirmed_subscription_count"`
}
