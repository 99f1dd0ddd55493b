package policy

import "github.com/pankaj-dahiya-devops/alertchain/internal/rules"

// DefaultPolicyFile is the policy file looked up in the working directory.
const DefaultPolicyFile = "dp.yaml"

// PolicyConfig is the parsed dp.yaml.
type PolicyConfig struct {
	Version int `yaml:"version"`

	// Attributes are environment attributes made available to controls,
	// e.g. default_aws_region.
	Attributes map[string]string `yaml:"attributes"`

	// Controls are custom controls evaluated after the built-in pack.
	Controls []rules.Control `yaml:"controls"`

	// Rules holds per-control overrides keyed by control ID.
	Rules map[string]RuleConfig `yaml:"rules"`

	Enforcement EnforcementConfig `yaml:"enforcement"`
}

// RuleConfig overrides one control. Unset fields keep the control's values.
type RuleConfig struct {
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Impact   *float64 `yaml:"impact,omitempty"`
	Strategy string   `yaml:"strategy,omitempty"`
}

// EnforcementConfig decides when an audit exits non-zero.
type EnforcementConfig struct {
	// FailOnImpact fails the audit when any FAILED verdict has an impact at
	// or above this value.
	FailOnImpact *float64 `yaml:"fail_on_impact,omitempty"`

	// FailOnUnavailable fails the audit when any control could not be
	// evaluated because AWS was unreachable.
	FailOnUnavailable bool `yaml:"fail_on_unavailable,omitempty"`

	// FailOnInconclusive fails the audit on any INCONCLUSIVE verdict.
	FailOnInconclusive bool `yaml:"fail_on_inconclusive,omitempty"`
}
