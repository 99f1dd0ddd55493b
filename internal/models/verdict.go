package models

// Strategy selects how a control walks the alerting chain.
type Strategy string

const (
	// StrategyFilterFirst locates the metric filter by pattern alone and then
	// finds the trails that deliver to its log group.
	StrategyFilterFirst Strategy = "filter-first"

	// StrategyTrailFirst walks every trail's log group and looks the filter up
	// per trail; the control passes when any one trail's chain is complete.
	StrategyTrailFirst Strategy = "trail-first"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyFilterFirst || s == StrategyTrailFirst
}

// VerdictStatus is the overall outcome of one control evaluation.
type VerdictStatus string

const (
	StatusPassed       VerdictStatus = "PASSED"
	StatusFailed       VerdictStatus = "FAILED"
	StatusInconclusive VerdictStatus = "INCONCLUSIVE"
	// StatusUnavailable means the resource gateway could not be reached. It is
	// never a compliance failure.
	StatusUnavailable VerdictStatus = "UNAVAILABLE"
)

// Outcome classifies a single reason line.
type Outcome string

const (
	OutcomePass         Outcome = "pass"
	OutcomeFail         Outcome = "fail"
	OutcomeInconclusive Outcome = "inconclusive"
	OutcomeInfo         Outcome = "info"
)

// ReasonCode is a stable identifier for a reason line.
type ReasonCode string

const (
	ReasonRegionNotPrimary    ReasonCode = "region_not_primary"
	ReasonNoTrails            ReasonCode = "no_trails"
	ReasonNoAssociatedTrail   ReasonCode = "no_associated_trail"
	ReasonTrailCompliant      ReasonCode = "trail_compliant"
	ReasonTrailNonCompliant   ReasonCode = "trail_non_compliant"
	ReasonNoCompliantTrail    ReasonCode = "no_compliant_trail"
	ReasonTrailNoLogGroup     ReasonCode = "trail_no_log_group"
	ReasonLogGroupUnparseable ReasonCode = "log_group_arn_unparseable"
	ReasonMetricFilterFound   ReasonCode = "metric_filter_found"
	ReasonMetricFilterMissing ReasonCode = "metric_filter_missing"
	ReasonMetricUndefined     ReasonCode = "metric_undefined"
	ReasonAlarmFound          ReasonCode = "alarm_found"
	ReasonAlarmMissing        ReasonCode = "alarm_missing"
	ReasonAlarmNoActions      ReasonCode = "alarm_no_actions"
	ReasonTopicConfirmed      ReasonCode = "topic_confirmed"
	ReasonTopicUnconfirmed    ReasonCode = "topic_unconfirmed"
	ReasonTopicMissing        ReasonCode = "topic_missing"
	ReasonGatewayUnavailable  ReasonCode = "gateway_unavailable"
	ReasonEvaluationError     ReasonCode = "evaluation_error"
)

// Reason is one ordered diagnostic line of a verdict. Resource names the
// trail, filter, alarm, or topic the line is about, when there is one.
type Reason struct {
	Code     ReasonCode `json:"code"`
	Outcome  Outcome    `json:"outcome"`
	Resource string     `json:"resource,omitempty"`
	Message  string     `json:"message"`
}

// Verdict is the result of evaluating one control in one region.
// It carries no timestamps: evaluating the same snapshot twice yields an
// identical value.
type Verdict struct {
	ControlID string        `json:"control_id"`
	Title     string        `json:"title"`
	Region    string        `json:"region"`
	Strategy  Strategy      `json:"strategy"`
	Status    VerdictStatus `json:"status"`
	Passed    bool          `json:"passed"`
	Impact    float64       `json:"impact"`
	Reasons   []Reason      `json:"reasons"`
}

// HasReason reports whether the verdict contains a reason with code.
func (v Verdict) HasReason(code ReasonCode) bool {
	for _, r := range v.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// ReasonsWithCode returns the reasons carrying code, in order.
func (v Verdict) ReasonsWithCode(code ReasonCode) []Reason {
	var out []Reason
	for _, r := range v.Reasons {
		if r.Code == code {
			out = append(out, r)
		}
	}
	return out
}
