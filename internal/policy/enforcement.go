package policy

import "github.com/pankaj-dahiya-devops/alertchain/internal/models"

// ShouldFail reports whether verdicts breach the policy's enforcement block.
//
// It returns false when cfg is nil or no enforcement option is set. It
// returns true when any of the following holds:
//   - a FAILED verdict has impact >= fail_on_impact
//   - fail_on_unavailable is set and a verdict is UNAVAILABLE
//   - fail_on_inconclusive is set and a verdict is INCONCLUSIVE
func ShouldFail(verdicts []models.Verdict, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	enf := cfg.Enforcement
	for _, v := range verdicts {
		switch v.Status {
		case models.StatusFailed:
			if enf.FailOnImpact != nil && v.Impact >= *enf.FailOnImpact {
				return true
			}
		case models.StatusUnavailable:
			if enf.FailOnUnavailable {
				return true
			}
		case models.StatusInconclusive:
			if enf.FailOnInconclusive {
				return true
			}
		}
	}
	return false
}
