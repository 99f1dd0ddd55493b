package rules

import (
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// Control is the configuration of one alerting-chain control.
type Control struct {
	// ID is the stable control identifier, e.g. "cis-aws-4.1".
	ID string `yaml:"id" json:"id"`

	// Title is the human-readable control title.
	Title string `yaml:"title" json:"title"`

	// Pattern is the literal metric filter pattern the control looks for.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Strategy selects filter-first or trail-first chain resolution.
	Strategy models.Strategy `yaml:"strategy" json:"strategy"`

	// Impact is the default severity in [0, 1].
	Impact float64 `yaml:"impact" json:"impact"`

	// PrimaryRegionAttribute names the Env attribute holding the account's
	// primary region. When set, evaluating any other region forces impact to 0.
	PrimaryRegionAttribute string `yaml:"primary_region_attribute,omitempty" json:"primary_region_attribute,omitempty"`

	// RequireCompliantTrail adds the check that at least one trail on the
	// chain is multi-region, logging, and captures all management events.
	RequireCompliantTrail bool `yaml:"require_compliant_trail,omitempty" json:"require_compliant_trail,omitempty"`
}

// Validate returns every problem with the control joined into one error.
func (c Control) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.Pattern == "" {
		errs = append(errs, fmt.Errorf("control %q: pattern is required", c.ID))
	}
	if !c.Strategy.Valid() {
		errs = append(errs, fmt.Errorf("control %q: strategy %q must be %q or %q",
			c.ID, c.Strategy, models.StrategyFilterFirst, models.StrategyTrailFirst))
	}
	if c.Impact < 0 || c.Impact > 1 {
		errs = append(errs, fmt.Errorf("control %q: impact %.2f must be within [0, 1]", c.ID, c.Impact))
	}
	return errors.Join(errs...)
}
