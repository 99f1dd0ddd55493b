package rules

import (
	"context"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// Env describes where a rule is being evaluated.
type Env struct {
	// Region is the region under evaluation.
	Region string

	// Attributes holds named environment attributes, e.g.
	// "default_aws_region" → the account's designated primary region.
	Attributes map[string]string
}

// RuleContext is the sole input to Rule.Evaluate.
type RuleContext struct {
	// AccountID is the AWS account being evaluated.
	AccountID string

	// Profile is the AWS profile name for this evaluation run.
	Profile string

	// Env is the evaluation environment.
	Env Env

	// Gateway reads the region's alerting resources. Every rule evaluated in
	// one run shares the same gateway so they observe the same snapshot.
	Gateway awsalerting.Gateway

	// LookupConcurrency bounds parallel gateway lookups within one chain
	// step. Zero uses the resolver default.
	LookupConcurrency int
}

// Rule is a single control evaluation.
// Rules must be stateless and safe to call concurrently. They read cloud
// state only through RuleContext.Gateway.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "cis-aws-4.1").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate returns exactly one verdict. A non-nil error means the verdict
	// could not be decided; the returned verdict then only carries the
	// control's identity, region, and impact.
	Evaluate(ctx context.Context, rctx RuleContext) (models.Verdict, error)
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against rctx and returns one
	// verdict per rule in registration order.
	EvaluateAll(ctx context.Context, rctx RuleContext) []models.Verdict
}
