package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/alertchain/internal/metrics"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// defaultMaxConcurrency caps the number of rules evaluated in parallel.
const defaultMaxConcurrency = 4

// DefaultRuleRegistry is a simple, ordered, in-memory registry.
// Rules are evaluated concurrently but verdicts keep registration order.
// Register panics on duplicate rule IDs to catch wiring mistakes at startup.
type DefaultRuleRegistry struct {
	rules []Rule
	index map[string]struct{}

	// MaxConcurrency bounds parallel rule evaluations. Zero means 4.
	MaxConcurrency int

	// Metrics counts verdicts by status. May be nil.
	Metrics *metrics.Metrics
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index: make(map[string]struct{}),
	}
}

// Register adds rule to the registry. Panics if the same ID is registered twice.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = struct{}{}
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// EvaluateAll runs every registered rule against rctx. A rule that returns
// an error yields an UNAVAILABLE verdict, never a partial pass.
func (r *DefaultRuleRegistry) EvaluateAll(ctx context.Context, rctx RuleContext) []models.Verdict {
	limit := r.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}

	verdicts := make([]models.Verdict, len(r.rules))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, rule := range r.rules {
		i, rule := i, rule
		g.Go(func() error {
			v, err := rule.Evaluate(ctx, rctx)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("rule", rule.ID()).
					Str("region", rctx.Env.Region).
					Msg("rule evaluation unavailable")
				v = unavailableVerdict(rule, rctx, v, err)
			}
			r.Metrics.IncVerdict(v.ControlID, string(v.Status))
			verdicts[i] = v
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

// unavailableVerdict turns an evaluation error into a verdict that keeps the
// control's identity but carries no compliance reasons.
func unavailableVerdict(rule Rule, rctx RuleContext, partial models.Verdict, err error) models.Verdict {
	v := models.Verdict{
		ControlID: partial.ControlID,
		Title:     partial.Title,
		Region:    partial.Region,
		Strategy:  partial.Strategy,
		Impact:    partial.Impact,
		Status:    models.StatusUnavailable,
	}
	if v.ControlID == "" {
		v.ControlID = rule.ID()
		v.Title = rule.Name()
		v.Region = rctx.Env.Region
	}

	code := models.ReasonEvaluationError
	if errors.Is(err, awsalerting.ErrGatewayUnavailable) {
		code = models.ReasonGatewayUnavailable
	}
	v.Reasons = []models.Reason{{
		Code:    code,
		Outcome: models.OutcomeInconclusive,
		Message: err.Error(),
	}}
	return v
}
