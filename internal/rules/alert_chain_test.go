package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

const (
	unauthorizedPattern = `{ ($.errorCode = "*UnauthorizedOperation") || ($.errorCode = "AccessDenied*") }`
	topicT1             = "arn:aws:sns:us-east-1:111111111111:t1"
	topicT2             = "arn:aws:sns:us-east-1:111111111111:t2"
)

func filterFirstControl() Control {
	return Control{
		ID:                     "aws-foundations-cis-4.1",
		Title:                  "Ensure unauthorized API calls are monitored",
		Pattern:                unauthorizedPattern,
		Strategy:               models.StrategyFilterFirst,
		Impact:                 0.5,
		PrimaryRegionAttribute: "default_aws_region",
		RequireCompliantTrail:  true,
	}
}

func trailFirstControl() Control {
	c := filterFirstControl()
	c.ID = "trail-first"
	c.Strategy = models.StrategyTrailFirst
	c.RequireCompliantTrail = false
	return c
}

func trail(name, logGroup string) models.Trail {
	t := models.Trail{
		Name:          name,
		ARN:           "arn:aws:cloudtrail:us-east-1:111111111111:trail/" + name,
		IsMultiRegion: true,
		IsLogging:     true,
		EventSelectors: []models.EventSelector{
			{IncludeManagementEvents: true, ReadWriteType: models.ReadWriteAll},
		},
	}
	if logGroup != "" {
		t.LogGroupARN = "arn:aws:logs:us-east-1:111111111111:log-group:" + logGroup + ":*"
	}
	return t
}

// completeSnapshot is a fully wired chain on log group CloudTrail/Default.
func completeSnapshot() awsalerting.Snapshot {
	return awsalerting.Snapshot{
		Trails: []models.Trail{trail("main", "CloudTrail/Default")},
		MetricFilters: []models.MetricFilter{{
			Name: "unauthorized", LogGroupName: "CloudTrail/Default", Pattern: unauthorizedPattern,
			MetricName: "UnauthorizedAPICalls", MetricNamespace: "CISBenchmark",
		}},
		Alarms: []models.Alarm{{
			Name: "unauthorized-alarm", MetricName: "UnauthorizedAPICalls", MetricNamespace: "CISBenchmark",
			AlarmActions: []string{topicT1},
		}},
		Topics: []models.NotificationTopic{{ARN: topicT1, ConfirmedSubscriptionCount: 2}},
	}
}

func primaryEnv() Env {
	return Env{Region: "us-east-1", Attributes: map[string]string{"default_aws_region": "us-east-1"}}
}

func evaluate(t *testing.T, c Control, snap awsalerting.Snapshot, env Env) models.Verdict {
	t.Helper()
	v, err := NewAlertChainRule(c).Evaluate(context.Background(), RuleContext{
		Env:     env,
		Gateway: awsalerting.NewStaticGateway(snap),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func hasAlarmOrTopicReasons(v models.Verdict) bool {
	for _, code := range []models.ReasonCode{
		models.ReasonAlarmFound, models.ReasonAlarmMissing, models.ReasonAlarmNoActions,
		models.ReasonTopicConfirmed, models.ReasonTopicUnconfirmed, models.ReasonTopicMissing,
	} {
		if v.HasReason(code) {
			return true
		}
	}
	return false
}

// ── filter-first ──────────────────────────────────────────────────────────────

func TestAlertChainRule_FilterFirst_CompleteChainPasses(t *testing.T) {
	v := evaluate(t, filterFirstControl(), completeSnapshot(), primaryEnv())

	if !v.Passed || v.Status != models.StatusPassed {
		t.Fatalf("expected PASSED, got %s: %+v", v.Status, v.Reasons)
	}
	if v.Impact != 0.5 {
		t.Errorf("impact = %v; want 0.5", v.Impact)
	}
	for _, code := range []models.ReasonCode{
		models.ReasonMetricFilterFound, models.ReasonTrailCompliant,
		models.ReasonAlarmFound, models.ReasonTopicConfirmed,
	} {
		if !v.HasReason(code) {
			t.Errorf("missing reason %s", code)
		}
	}
}

func TestAlertChainRule_FilterFirst_NoFilter(t *testing.T) {
	snap := completeSnapshot()
	snap.MetricFilters = nil
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed || v.Status != models.StatusFailed {
		t.Fatalf("expected FAILED, got %s", v.Status)
	}
	if !v.HasReason(models.ReasonMetricFilterMissing) || !v.HasReason(models.ReasonNoAssociatedTrail) {
		t.Errorf("expected metric_filter_missing and no_associated_trail, got %+v", v.Reasons)
	}
	if hasAlarmOrTopicReasons(v) {
		t.Errorf("alarm/topic checks must be absent: %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_NoAssociatedTrail(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails = []models.Trail{trail("main", "SomeOtherGroup")}
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed {
		t.Fatal("expected failure")
	}
	if !v.HasReason(models.ReasonNoAssociatedTrail) {
		t.Errorf("expected no_associated_trail, got %+v", v.Reasons)
	}
	if v.HasReason(models.ReasonNoCompliantTrail) {
		t.Error("empty trail set must not be reported as non-compliant trails")
	}
	if hasAlarmOrTopicReasons(v) {
		t.Errorf("alarm/topic checks must be absent: %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_UnparseableTrailIsInconclusive(t *testing.T) {
	snap := completeSnapshot()
	slash := trail("slash", "")
	slash.LogGroupARN = "arn:aws:logs:us-east-1:111111111111:log-group/CloudTrail/Default"
	snap.Trails = []models.Trail{slash}
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed || v.Status != models.StatusInconclusive {
		t.Fatalf("status = %s; want INCONCLUSIVE: %+v", v.Status, v.Reasons)
	}
	if v.HasReason(models.ReasonNoAssociatedTrail) {
		t.Errorf("an undecidable association must not report no_associated_trail")
	}
	r := v.ReasonsWithCode(models.ReasonLogGroupUnparseable)
	if len(r) != 1 || r[0].Outcome != models.OutcomeInconclusive || r[0].Resource != slash.ARN {
		t.Errorf("expected one inconclusive unparseable reason for %s, got %+v", slash.ARN, v.Reasons)
	}
	if !v.HasReason(models.ReasonAlarmFound) || !v.HasReason(models.ReasonTopicConfirmed) {
		t.Errorf("alarm and topic checks must still run: %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_UnparseableKeepsDiscoveryOrder(t *testing.T) {
	snap := completeSnapshot()
	a := trail("a", "")
	a.LogGroupARN = "arn:aws:logs:us-east-1:111111111111:destination:a"
	b := trail("b", "")
	b.LogGroupARN = "not-an-arn"
	snap.Trails = []models.Trail{a, b}
	snap.Alarms = nil
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Status != models.StatusFailed {
		t.Errorf("a missing alarm must still fail, got %s", v.Status)
	}
	r := v.ReasonsWithCode(models.ReasonLogGroupUnparseable)
	if len(r) != 2 || r[0].Resource != a.ARN || r[1].Resource != b.ARN {
		t.Errorf("unparseable reasons out of discovery order: %+v", r)
	}
}

func TestAlertChainRule_FilterFirst_UnparseableIgnoredWhenTrailAssociated(t *testing.T) {
	snap := completeSnapshot()
	broken := trail("broken", "")
	broken.LogGroupARN = "arn:aws:logs:us-east-1:111111111111:destination:x"
	snap.Trails = append(snap.Trails, broken)
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if !v.Passed {
		t.Fatalf("expected PASSED, got %s: %+v", v.Status, v.Reasons)
	}
	r := v.ReasonsWithCode(models.ReasonLogGroupUnparseable)
	if len(r) != 1 || r[0].Outcome != models.OutcomeInfo {
		t.Errorf("expected one info unparseable reason, got %+v", r)
	}
}

func TestAlertChainRule_FilterFirst_TrailPresentButNonCompliant(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails[0].IsLogging = false
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed {
		t.Fatal("expected failure")
	}
	if v.HasReason(models.ReasonNoAssociatedTrail) {
		t.Error("an associated trail exists")
	}
	if !v.HasReason(models.ReasonNoCompliantTrail) || !v.HasReason(models.ReasonTrailNonCompliant) {
		t.Errorf("expected non-compliance reasons, got %+v", v.Reasons)
	}
	// Checks are independent: the alarm chain is still judged.
	if !v.HasReason(models.ReasonAlarmFound) || !v.HasReason(models.ReasonTopicConfirmed) {
		t.Errorf("alarm checks must still run, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_OneCompliantTrailSuffices(t *testing.T) {
	snap := completeSnapshot()
	single := trail("regional", "CloudTrail/Default")
	single.IsMultiRegion = false
	snap.Trails = []models.Trail{single, trail("main", "CloudTrail/Default")}
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if !v.Passed {
		t.Fatalf("expected PASSED, got %+v", v.Reasons)
	}
	got := v.ReasonsWithCode(models.ReasonTrailCompliant)
	if len(got) != 1 || got[0].Resource != snap.Trails[1].ARN {
		t.Errorf("trail_compliant = %+v; want main", got)
	}
}

func TestAlertChainRule_FilterFirst_NoAlarmSkipsTopics(t *testing.T) {
	snap := completeSnapshot()
	snap.Alarms = nil
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed {
		t.Fatal("expected failure")
	}
	if !v.HasReason(models.ReasonAlarmMissing) {
		t.Errorf("expected alarm_missing, got %+v", v.Reasons)
	}
	for _, code := range []models.ReasonCode{models.ReasonTopicConfirmed, models.ReasonTopicUnconfirmed, models.ReasonTopicMissing} {
		if v.HasReason(code) {
			t.Errorf("topic reason %s must be absent", code)
		}
	}
}

func TestAlertChainRule_FilterFirst_AlarmWithoutActions(t *testing.T) {
	snap := completeSnapshot()
	snap.Alarms[0].AlarmActions = nil
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed || !v.HasReason(models.ReasonAlarmNoActions) {
		t.Errorf("expected alarm_no_actions failure, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_UniversalOverTopics(t *testing.T) {
	snap := completeSnapshot()
	snap.Alarms[0].AlarmActions = []string{topicT1, topicT2}
	snap.Topics = []models.NotificationTopic{
		{ARN: topicT1, ConfirmedSubscriptionCount: 1},
		{ARN: topicT2, ConfirmedSubscriptionCount: 0},
	}
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed || v.Status != models.StatusFailed {
		t.Fatalf("one unconfirmed topic must fail the control, got %s", v.Status)
	}
	confirmed := v.ReasonsWithCode(models.ReasonTopicConfirmed)
	unconfirmed := v.ReasonsWithCode(models.ReasonTopicUnconfirmed)
	if len(confirmed) != 1 || confirmed[0].Resource != topicT1 || confirmed[0].Outcome != models.OutcomePass {
		t.Errorf("topic_confirmed = %+v; want T1 pass", confirmed)
	}
	if len(unconfirmed) != 1 || unconfirmed[0].Resource != topicT2 || unconfirmed[0].Outcome != models.OutcomeFail {
		t.Errorf("topic_unconfirmed = %+v; want T2 fail", unconfirmed)
	}
}

func TestAlertChainRule_FilterFirst_MissingTopic(t *testing.T) {
	snap := completeSnapshot()
	snap.Alarms[0].AlarmActions = []string{"arn:aws:sns:us-east-1:111111111111:deleted"}
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if v.Passed || !v.HasReason(models.ReasonTopicMissing) {
		t.Errorf("expected topic_missing failure, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_FilterFirst_UndefinedMetricShortCircuits(t *testing.T) {
	snap := completeSnapshot()
	snap.MetricFilters[0].MetricName = ""
	snap.MetricFilters[0].MetricNamespace = ""
	v := evaluate(t, filterFirstControl(), snap, primaryEnv())

	if !v.HasReason(models.ReasonMetricUndefined) {
		t.Errorf("expected metric_undefined, got %+v", v.Reasons)
	}
	if hasAlarmOrTopicReasons(v) {
		t.Errorf("alarm/topic checks must be omitted, got %+v", v.Reasons)
	}
	if v.Status != models.StatusPassed {
		t.Errorf("skipped checks are not failures, got %s", v.Status)
	}
}

// ── trail-first ───────────────────────────────────────────────────────────────

func TestAlertChainRule_TrailFirst_AnyBranchPasses(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails = []models.Trail{trail("nolog", ""), trail("main", "CloudTrail/Default")}
	v := evaluate(t, trailFirstControl(), snap, primaryEnv())

	if !v.Passed {
		t.Fatalf("expected PASSED, got %+v", v.Reasons)
	}
	// Reasons keep discovery order.
	if v.Reasons[0].Code != models.ReasonTrailNoLogGroup {
		t.Errorf("first reason = %s; want trail_no_log_group", v.Reasons[0].Code)
	}
}

func TestAlertChainRule_TrailFirst_NoTrailMatchesAnyFilter(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails = []models.Trail{trail("a", "GroupA"), trail("b", "GroupB")}
	v := evaluate(t, trailFirstControl(), snap, primaryEnv())

	if v.Passed || v.Status != models.StatusFailed {
		t.Fatalf("expected FAILED, got %s", v.Status)
	}
	if !v.HasReason(models.ReasonNoAssociatedTrail) {
		t.Errorf("expected no_associated_trail, got %+v", v.Reasons)
	}
	if hasAlarmOrTopicReasons(v) {
		t.Errorf("alarm/topic checks must be absent, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_TrailFirst_NoTrails(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails = nil
	v := evaluate(t, trailFirstControl(), snap, primaryEnv())

	if v.Passed || !v.HasReason(models.ReasonNoTrails) {
		t.Errorf("expected no_trails failure, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_TrailFirst_UnparseableIsInconclusive(t *testing.T) {
	snap := completeSnapshot()
	broken := trail("broken", "")
	broken.LogGroupARN = "arn:aws:logs:us-east-1:111111111111:destination:x"
	snap.Trails = []models.Trail{broken}
	v := evaluate(t, trailFirstControl(), snap, primaryEnv())

	if v.Status != models.StatusInconclusive {
		t.Errorf("status = %s; want INCONCLUSIVE", v.Status)
	}
	r := v.ReasonsWithCode(models.ReasonLogGroupUnparseable)
	if len(r) != 1 || r[0].Outcome != models.OutcomeInconclusive {
		t.Errorf("expected one inconclusive unparseable reason, got %+v", v.Reasons)
	}
}

func TestAlertChainRule_TrailFirst_BranchFailureDoesNotFailControl(t *testing.T) {
	snap := completeSnapshot()
	snap.Trails = []models.Trail{trail("main", "CloudTrail/Default"), trail("other", "Other")}
	snap.MetricFilters = append(snap.MetricFilters, models.MetricFilter{
		Name: "other", LogGroupName: "Other", Pattern: unauthorizedPattern,
		MetricName: "NoAlarm", MetricNamespace: "CISBenchmark",
	})
	v := evaluate(t, trailFirstControl(), snap, primaryEnv())

	if !v.Passed {
		t.Fatalf("main's chain is complete, got %+v", v.Reasons)
	}
	if !v.HasReason(models.ReasonAlarmMissing) {
		t.Error("other's missing alarm must still be reported")
	}
}

// ── applicability override ────────────────────────────────────────────────────

func TestAlertChainRule_NonPrimaryRegionZeroesImpact(t *testing.T) {
	env := Env{Region: "eu-west-1", Attributes: map[string]string{"default_aws_region": "us-east-1"}}
	for _, snap := range []awsalerting.Snapshot{completeSnapshot(), {}} {
		v := evaluate(t, filterFirstControl(), snap, env)
		if v.Impact != 0 {
			t.Errorf("impact = %v; want 0", v.Impact)
		}
		r := v.ReasonsWithCode(models.ReasonRegionNotPrimary)
		if len(r) != 1 || r[0].Outcome != models.OutcomeInfo {
			t.Errorf("expected one region_not_primary info reason, got %+v", v.Reasons)
		}
	}
}

func TestAlertChainRule_OverrideSkippedWithoutPrimaryRegion(t *testing.T) {
	v := evaluate(t, filterFirstControl(), completeSnapshot(), Env{Region: "eu-west-1"})
	if v.Impact != 0.5 || v.HasReason(models.ReasonRegionNotPrimary) {
		t.Errorf("override must not apply without a primary region: %+v", v)
	}
}

// ── contract ──────────────────────────────────────────────────────────────────

func TestAlertChainRule_GatewayUnavailable(t *testing.T) {
	gw := &awsalerting.StaticGateway{Err: errors.New("dial tcp: i/o timeout")}
	v, err := NewAlertChainRule(filterFirstControl()).Evaluate(context.Background(), RuleContext{Env: primaryEnv(), Gateway: gw})
	if !errors.Is(err, awsalerting.ErrGatewayUnavailable) {
		t.Fatalf("error = %v; want ErrGatewayUnavailable", err)
	}
	if v.Passed {
		t.Error("an unavailable gateway must never produce a pass")
	}
	if v.ControlID != "aws-foundations-cis-4.1" {
		t.Errorf("verdict header not filled: %+v", v)
	}
}

func TestAlertChainRule_Idempotent(t *testing.T) {
	gw := awsalerting.NewStaticGateway(completeSnapshot())
	gw.Snapshot.Alarms[0].AlarmActions = []string{topicT1, topicT2}
	for _, c := range []Control{filterFirstControl(), trailFirstControl()} {
		var prev []byte
		for i := 0; i < 3; i++ {
			v, err := NewAlertChainRule(c).Evaluate(context.Background(), RuleContext{Env: primaryEnv(), Gateway: gw})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if prev != nil && !bytes.Equal(prev, b) {
				t.Fatalf("%s: run %d differs:\n%s\n%s", c.ID, i, prev, b)
			}
			prev = b
		}
	}
}

func TestAlertChainRule_AlwaysOneVerdict(t *testing.T) {
	snaps := []awsalerting.Snapshot{{}, completeSnapshot()}
	for _, c := range []Control{filterFirstControl(), trailFirstControl()} {
		for _, snap := range snaps {
			v := evaluate(t, c, snap, primaryEnv())
			if v.ControlID != c.ID || v.Status == "" {
				t.Errorf("%s: incomplete verdict %+v", c.ID, v)
			}
		}
	}
}
