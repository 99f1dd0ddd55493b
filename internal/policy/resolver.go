package policy

import (
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rules"
)

// ApplyPolicy returns the controls to evaluate: builtin followed by the
// policy's custom controls, with disabled controls dropped and impact and
// strategy overrides applied. builtin is not modified.
func ApplyPolicy(builtin []rules.Control, cfg *PolicyConfig) []rules.Control {
	if cfg == nil {
		return builtin
	}

	all := make([]rules.Control, 0, len(builtin)+len(cfg.Controls))
	all = append(all, builtin...)
	all = append(all, cfg.Controls...)

	var result []rules.Control
	for _, c := range all {
		rc, ok := cfg.Rules[c.ID]
		if !ok {
			result = append(result, c)
			continue
		}

		// Rule-level disable
		if rc.Enabled != nil && !*rc.Enabled {
			continue
		}

		c.Impact = GetImpact(c.ID, c.Impact, cfg)
		if rc.Strategy != "" {
			c.Strategy = models.Strategy(rc.Strategy)
		}
		result = append(result, c)
	}
	return result
}

// GetImpact returns the configured impact for a control, or defaultValue when
// no override is present. It is safe to call with cfg == nil.
func GetImpact(controlID string, defaultValue float64, cfg *PolicyConfig) float64 {
	if cfg == nil {
		return defaultValue
	}
	rc, ok := cfg.Rules[controlID]
	if !ok || rc.Impact == nil {
		return defaultValue
	}
	return *rc.Impact
}

// Attribute returns the named environment attribute from the policy, or ""
// when unset. It is safe to call with cfg == nil.
func Attribute(name string, cfg *PolicyConfig) string {
	if cfg == nil {
		return ""
	}
	return cfg.Attributes[name]
}
