package policy

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - every custom control must be valid and must not reuse a built-in ID
//   - rule IDs must name a built-in or custom control
//   - rule impact overrides must be within [0, 1]
//   - rule strategy overrides must be filter-first or trail-first
//   - enforcement fail_on_impact must be within [0, 1]
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, builtinRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(builtinRuleIDs)+len(cfg.Controls))
	for _, id := range builtinRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	// Version check.
	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	// Custom controls.
	for i, c := range cfg.Controls {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("controls[%d]: %w", i, err))
		}
		if c.ID == "" {
			continue
		}
		if _, dup := knownIDs[c.ID]; dup {
			errs = append(errs, fmt.Errorf("controls[%d]: duplicate control ID %q", i, c.ID))
			continue
		}
		knownIDs[c.ID] = struct{}{}
	}

	// Rule checks.
	for ruleID, rcfg := range cfg.Rules {
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown control ID", ruleID))
		}
		if rcfg.Impact != nil && (*rcfg.Impact < 0 || *rcfg.Impact > 1) {
			errs = append(errs, fmt.Errorf("rules.%s.impact: %.2f must be within [0, 1]", ruleID, *rcfg.Impact))
		}
		if rcfg.Strategy != "" && !models.Strategy(rcfg.Strategy).Valid() {
			errs = append(errs, fmt.Errorf("rules.%s.strategy: invalid value %q; valid values: %s, %s",
				ruleID, rcfg.Strategy, models.StrategyFilterFirst, models.StrategyTrailFirst))
		}
	}

	// Enforcement checks.
	if t := cfg.Enforcement.FailOnImpact; t != nil && (*t < 0 || *t > 1) {
		errs = append(errs, fmt.Errorf("enforcement.fail_on_impact: %.2f must be within [0, 1]", *t))
	}

	return errs
}
