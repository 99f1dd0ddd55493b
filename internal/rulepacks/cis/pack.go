// Package cis provides the built-in alerting-chain controls from the CIS
// AWS Foundations Benchmark.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule. Patterns are
// compared verbatim with stored metric filter patterns, so they must not be
// reformatted.
package cis

import (
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rules"
)

// PrimaryRegionAttribute is the environment attribute naming the account's
// designated primary region. Only 3.10 zeroes its impact outside that region;
// custom controls opt in through primary_region_attribute.
const PrimaryRegionAttribute = "default_aws_region"

const (
	// SecurityGroupChangesPattern matches security group create, delete,
	// authorize, and revoke calls.
	SecurityGroupChangesPattern = "{ ($.eventName = AuthorizeSecurityGroupIngress) || ($.eventName = AuthorizeSecurityGroupEgress) || ($.eventName = RevokeSecurityGroupIngress) || ($.eventName = RevokeSecurityGroupEgress) || ($.eventName = CreateSecurityGroup) || ($.eventName = DeleteSecurityGroup) }"

	// UnauthorizedAPICallsPattern matches access-denied API responses.
	UnauthorizedAPICallsPattern = `{ ($.errorCode = "*UnauthorizedOperation") || ($.errorCode = "AccessDenied*") }`
)

// Controls returns the built-in control configurations in evaluation order.
func Controls() []rules.Control {
	return []rules.Control{
		{
			ID:                     "cis-aws-foundations-3.10",
			Title:                  "Ensure a log metric filter and alarm exist for security group changes",
			Pattern:                SecurityGroupChangesPattern,
			Strategy:               models.StrategyTrailFirst,
			Impact:                 0.7,
			PrimaryRegionAttribute: PrimaryRegionAttribute,
		},
		{
			ID:                    "aws-foundations-cis-4.1",
			Title:                 "Ensure unauthorized API calls are monitored",
			Pattern:               UnauthorizedAPICallsPattern,
			Strategy:              models.StrategyFilterFirst,
			Impact:                0.5,
			RequireCompliantTrail: true,
		},
	}
}

// New returns the built-in rules in the order they should be evaluated.
func New() []rules.Rule {
	return FromControls(Controls())
}

// FromControls wraps each control in an AlertChainRule.
func FromControls(controls []rules.Control) []rules.Rule {
	out := make([]rules.Rule, 0, len(controls))
	for _, c := range controls {
		out = append(out, rules.NewAlertChainRule(c))
	}
	return out
}
