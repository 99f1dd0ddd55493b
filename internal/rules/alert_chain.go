package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/alertchain/internal/chain"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// State is a step of one alerting-chain evaluation.
type State string

const (
	StateStart          State = "start"
	StateChainResolved  State = "chain_resolved"
	StateEvaluated      State = "evaluated"
	StateShortCircuited State = "short_circuited"
	StateDone           State = "done"
)

// AlertChainRule verifies that the alerting chain for Control's pattern is
// complete: trail → log group → metric filter → alarm → confirmed SNS topic.
type AlertChainRule struct {
	Control Control
}

// NewAlertChainRule returns the rule for c.
func NewAlertChainRule(c Control) AlertChainRule {
	return AlertChainRule{Control: c}
}

func (r AlertChainRule) ID() string   { return r.Control.ID }
func (r AlertChainRule) Name() string { return r.Control.Title }

// Evaluate resolves the chain through rctx.Gateway and judges it. Missing
// resources become failing reasons; only gateway failures are returned.
func (r AlertChainRule) Evaluate(ctx context.Context, rctx RuleContext) (models.Verdict, error) {
	e := &evaluation{
		control: r.Control,
		env:     rctx.Env,
		state:   StateStart,
		log: zerolog.Ctx(ctx).With().
			Str("rule", r.Control.ID).
			Str("region", rctx.Env.Region).
			Logger(),
	}
	e.start()

	if rctx.Gateway == nil {
		return e.verdict, errors.New("rule context has no gateway")
	}
	resolver := chain.NewResolver(rctx.Gateway)
	resolver.MaxConcurrency = rctx.LookupConcurrency
	bundle, err := resolver.Resolve(ctx, chain.Spec{
		Pattern:       r.Control.Pattern,
		Strategy:      r.Control.Strategy,
		HydrateTrails: r.Control.RequireCompliantTrail,
	})
	if err != nil {
		return e.verdict, fmt.Errorf("evaluate %s in %s: %w", r.Control.ID, rctx.Env.Region, err)
	}
	e.transition(StateChainResolved)

	switch r.Control.Strategy {
	case models.StrategyTrailFirst:
		e.judgeTrailFirst(bundle)
	default:
		e.judgeFilterFirst(bundle)
	}
	e.transition(StateDone)
	return e.verdict, nil
}

// evaluation is the mutable state of one Evaluate call.
type evaluation struct {
	control Control
	env     Env
	state   State
	verdict models.Verdict
	log     zerolog.Logger
}

func (e *evaluation) transition(to State) {
	e.log.Debug().Str("from", string(e.state)).Str("to", string(to)).Msg("rule state")
	e.state = to
}

func (e *evaluation) add(code models.ReasonCode, outcome models.Outcome, resource, format string, args ...any) {
	e.verdict.Reasons = append(e.verdict.Reasons, models.Reason{
		Code:     code,
		Outcome:  outcome,
		Resource: resource,
		Message:  fmt.Sprintf(format, args...),
	})
}

// start fills the verdict header and applies the region applicability
// override.
func (e *evaluation) start() {
	e.verdict = models.Verdict{
		ControlID: e.control.ID,
		Title:     e.control.Title,
		Region:    e.env.Region,
		Strategy:  e.control.Strategy,
		Impact:    e.control.Impact,
		Reasons:   []models.Reason{},
	}

	attr := e.control.PrimaryRegionAttribute
	if attr == "" {
		return
	}
	primary := e.env.Attributes[attr]
	if primary == "" || primary == e.env.Region {
		return
	}
	e.verdict.Impact = 0
	e.add(models.ReasonRegionNotPrimary, models.OutcomeInfo, e.env.Region,
		"Currently inspected region %s is not the primary AWS region (%s)", e.env.Region, primary)
}

// ── filter-first ──────────────────────────────────────────────────────────────

// judgeFilterFirst applies the checks conjunctively: every failing reason
// fails the control.
func (e *evaluation) judgeFilterFirst(b *chain.Bundle) {
	link := b.Link
	if link.Filter == nil {
		e.add(models.ReasonMetricFilterMissing, models.OutcomeFail, "",
			"No metric filter with the configured pattern exists")
	} else {
		e.add(models.ReasonMetricFilterFound, models.OutcomePass, link.Filter.Name,
			"Metric filter %s in log group %s matches the pattern", link.Filter.Name, link.Filter.LogGroupName)
	}

	// Non-emptiness is checked apart from compliance so that "no trail" and
	// "no compliant trail" stay distinct reasons.
	q := chain.Quantify(b.Associated, models.Trail.Compliant)

	// An unparseable trail only leaves the result undecided when it could be
	// the sole trail feeding a located filter.
	undecided := link.Filter != nil && q.Empty && len(b.Unparseable) > 0
	for _, t := range b.Unparseable {
		outcome := models.OutcomeInfo
		if undecided {
			outcome = models.OutcomeInconclusive
		}
		e.add(models.ReasonLogGroupUnparseable, outcome, t.ID(),
			"Trail %s has log group ARN %q with no log group name", t.Name, t.LogGroupARN)
	}

	switch {
	case undecided:
	case q.Empty:
		e.add(models.ReasonNoAssociatedTrail, models.OutcomeFail, b.LogGroupName,
			"No trail delivers to a log group with a matching metric filter")
	case e.control.RequireCompliantTrail:
		e.judgeTrails(b.Associated, q)
	}

	// Without a trail feeding the filter the alarm can never fire, so its
	// checks are omitted like those of a missing filter.
	if link.ShortCircuited() || (q.Empty && !undecided) {
		e.shortCircuit(link)
	} else {
		e.transition(StateEvaluated)
		e.judgeLink(link)
	}
	e.verdict.Status = statusFromReasons(e.verdict.Reasons)
	e.verdict.Passed = e.verdict.Status == models.StatusPassed
}

// judgeTrails reports whether at least one associated trail is compliant.
func (e *evaluation) judgeTrails(trails []models.Trail, q chain.Quantified) {
	if q.Satisfied {
		t := trails[q.Matches[0]]
		e.add(models.ReasonTrailCompliant, models.OutcomePass, t.ID(),
			"Trail %s is multi-region, logging, and captures all management events", t.Name)
		return
	}
	for _, t := range trails {
		e.add(models.ReasonTrailNonCompliant, models.OutcomeInfo, t.ID(),
			"Trail %s is not compliant: %s", t.Name, trailDeficiencies(t))
	}
	e.add(models.ReasonNoCompliantTrail, models.OutcomeFail, "",
		"None of the %d associated trails is multi-region, logging, and capturing all management events", len(trails))
}

// ── trail-first ───────────────────────────────────────────────────────────────

type branchOutcome int

const (
	branchSkipped branchOutcome = iota
	branchPassed
	branchFailed
	branchInconclusive
)

// judgeTrailFirst applies the checks per trail; the control passes when any
// one trail's chain passes.
func (e *evaluation) judgeTrailFirst(b *chain.Bundle) {
	if len(b.Trails) == 0 {
		e.add(models.ReasonNoTrails, models.OutcomeFail, "", "No CloudTrail trails exist")
		e.transition(StateShortCircuited)
		e.verdict.Status = models.StatusFailed
		return
	}

	var (
		passed, inconclusive, located bool
		evaluated                     bool
	)
	for _, br := range b.Branches {
		outcome, reachedFilter := e.judgeBranch(br)
		switch outcome {
		case branchPassed:
			passed = true
		case branchInconclusive:
			inconclusive = true
		}
		if reachedFilter {
			located = true
		}
		if br.LogGroupGap == chain.GapNone && !br.ShortCircuited() {
			evaluated = true
		}
	}

	if !located {
		e.add(models.ReasonNoAssociatedTrail, models.OutcomeFail, "",
			"No trail delivers to a log group with a matching metric filter")
	}
	if evaluated {
		e.transition(StateEvaluated)
	} else {
		e.transition(StateShortCircuited)
	}

	switch {
	case passed:
		e.verdict.Status = models.StatusPassed
	case inconclusive:
		e.verdict.Status = models.StatusInconclusive
	default:
		e.verdict.Status = models.StatusFailed
	}
	e.verdict.Passed = e.verdict.Status == models.StatusPassed
}

// judgeBranch records one trail's reasons. reachedFilter is true when a
// metric filter was found in the trail's log group.
func (e *evaluation) judgeBranch(br chain.Branch) (outcome branchOutcome, reachedFilter bool) {
	t := br.Trail
	switch br.LogGroupGap {
	case chain.GapNoLogGroup:
		e.add(models.ReasonTrailNoLogGroup, models.OutcomeFail, t.ID(),
			"Trail %s does not deliver to CloudWatch Logs", t.Name)
		return branchFailed, false
	case chain.GapUnparseable:
		e.add(models.ReasonLogGroupUnparseable, models.OutcomeInconclusive, t.ID(),
			"Trail %s has log group ARN %q with no log group name", t.Name, t.LogGroupARN)
		return branchInconclusive, false
	}

	if br.Filter == nil {
		e.add(models.ReasonMetricFilterMissing, models.OutcomeInfo, br.LogGroupName,
			"Log group %s of trail %s has no metric filter with the configured pattern", br.LogGroupName, t.Name)
		return branchSkipped, false
	}

	first := len(e.verdict.Reasons)
	if e.control.RequireCompliantTrail {
		if t.Compliant() {
			e.add(models.ReasonTrailCompliant, models.OutcomePass, t.ID(),
				"Trail %s is multi-region, logging, and captures all management events", t.Name)
		} else {
			e.add(models.ReasonTrailNonCompliant, models.OutcomeFail, t.ID(),
				"Trail %s is not compliant: %s", t.Name, trailDeficiencies(t))
		}
	}
	e.add(models.ReasonMetricFilterFound, models.OutcomePass, br.Filter.Name,
		"Metric filter %s in log group %s of trail %s matches the pattern", br.Filter.Name, br.LogGroupName, t.Name)
	if br.ShortCircuited() {
		e.shortCircuitReason(br.Link)
	} else {
		e.judgeLink(br.Link)
	}

	switch statusFromReasons(e.verdict.Reasons[first:]) {
	case models.StatusFailed:
		return branchFailed, true
	case models.StatusInconclusive:
		return branchInconclusive, true
	default:
		return branchPassed, true
	}
}

// ── shared checks ─────────────────────────────────────────────────────────────

func (e *evaluation) shortCircuit(link chain.Link) {
	e.transition(StateShortCircuited)
	e.shortCircuitReason(link)
}

func (e *evaluation) shortCircuitReason(link chain.Link) {
	if link.Gap() == chain.GapNoMetric {
		e.add(models.ReasonMetricUndefined, models.OutcomeInfo, link.Filter.Name,
			"Metric filter %s publishes no metric; alarm checks skipped", link.Filter.Name)
	}
}

// judgeLink checks the alarm and every topic it notifies. Checks are
// independent: a missing topic does not hide the others.
func (e *evaluation) judgeLink(link chain.Link) {
	f := link.Filter
	if link.Alarm == nil {
		e.add(models.ReasonAlarmMissing, models.OutcomeFail, f.MetricNamespace+"/"+f.MetricName,
			"No alarm exists for metric %s in namespace %s", f.MetricName, f.MetricNamespace)
		return
	}

	a := link.Alarm
	e.add(models.ReasonAlarmFound, models.OutcomePass, a.Name,
		"Alarm %s watches metric %s/%s", a.Name, f.MetricNamespace, f.MetricName)
	if len(a.AlarmActions) == 0 {
		e.add(models.ReasonAlarmNoActions, models.OutcomeFail, a.Name,
			"Alarm %s has no alarm actions", a.Name)
		return
	}

	for _, ref := range link.Topics {
		switch {
		case ref.Topic == nil:
			e.add(models.ReasonTopicMissing, models.OutcomeFail, ref.ARN,
				"Alarm action %s is not an existing SNS topic", ref.ARN)
		case ref.Topic.ConfirmedSubscriptionCount < 1:
			e.add(models.ReasonTopicUnconfirmed, models.OutcomeFail, ref.ARN,
				"SNS topic %s has no confirmed subscriptions", ref.ARN)
		default:
			e.add(models.ReasonTopicConfirmed, models.OutcomePass, ref.ARN,
				"SNS topic %s has %d confirmed subscription(s)", ref.ARN, ref.Topic.ConfirmedSubscriptionCount)
		}
	}
}

// statusFromReasons reduces reasons conjunctively: any failure fails, then
// any inconclusive line makes the result inconclusive.
func statusFromReasons(reasons []models.Reason) models.VerdictStatus {
	switch {
	case !chain.Every(reasons, outcomeIsNot(models.OutcomeFail)):
		return models.StatusFailed
	case !chain.Every(reasons, outcomeIsNot(models.OutcomeInconclusive)):
		return models.StatusInconclusive
	default:
		return models.StatusPassed
	}
}

func outcomeIsNot(o models.Outcome) func(models.Reason) bool {
	return func(r models.Reason) bool { return r.Outcome != o }
}

// trailDeficiencies lists why a trail is not compliant.
func trailDeficiencies(t models.Trail) string {
	var missing []string
	if !t.IsMultiRegion {
		missing = append(missing, "not multi-region")
	}
	if !t.IsLogging {
		missing = append(missing, "not logging")
	}
	if !t.CapturesAllManagementEvents() {
		missing = append(missing, "no selector capturing all management events")
	}
	if len(missing) == 0 {
		return "compliant"
	}
	return strings.Join(missing, ", ")
}
