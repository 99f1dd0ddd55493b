// Package render provides presentation-layer helpers for dp CLI output.
// It is a pure rendering package: no chain resolution, no judging, no AWS calls.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// chainLayers names the links of an alerting chain in walk order.
var chainLayers = []string{"CloudTrail", "Log group", "Metric filter", "Alarm", "SNS topic"}

// outcomeOrder is the order reason groups are rendered in.
var outcomeOrder = []models.Outcome{
	models.OutcomeFail,
	models.OutcomeInconclusive,
	models.OutcomePass,
	models.OutcomeInfo,
}

var outcomeMarker = map[models.Outcome]string{
	models.OutcomeFail:         "✗",
	models.OutcomeInconclusive: "?",
	models.OutcomePass:         "✓",
	models.OutcomeInfo:         "i",
}

// FindVerdicts returns every verdict for controlID, one per audited region,
// in report order.
func FindVerdicts(verdicts []models.Verdict, controlID string) []models.Verdict {
	var out []models.Verdict
	for _, v := range verdicts {
		if v.ControlID == controlID {
			out = append(out, v)
		}
	}
	return out
}

// RenderVerdictExplanation writes a structured breakdown of one verdict to w.
// Reasons are grouped by outcome (fail, inconclusive, pass, info); within a
// group they keep evaluation order.
//
// Example output:
//
//	CONTROL aws-foundations-cis-4.1 (us-east-1)
//	Title: Ensure unauthorized API calls are monitored
//	Strategy: filter-first
//	Status: FAILED  Impact: 0.50
//	Chain: CloudTrail → Log group → Metric filter → Alarm → SNS topic
//
//	Reasons (3):
//
//	  ✗ fail
//	    - alarm_missing: no alarm on CIS/UnauthorizedAPICalls
//
//	  ✓ pass
//	    - metric_filter_found: metric filter unauthorized found [unauthorized]
func RenderVerdictExplanation(w io.Writer, v models.Verdict) {
	fmt.Fprintf(w, "CONTROL %s (%s)\n", v.ControlID, v.Region)
	if v.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", v.Title)
	}
	fmt.Fprintf(w, "Strategy: %s\n", v.Strategy)
	fmt.Fprintf(w, "Status: %s  Impact: %.2f\n", v.Status, v.Impact)
	fmt.Fprintf(w, "Chain: %s\n", strings.Join(chainLayers, " → "))
	fmt.Fprintln(w)

	byOutcome := make(map[models.Outcome][]models.Reason, len(outcomeOrder))
	for _, r := range v.Reasons {
		byOutcome[r.Outcome] = append(byOutcome[r.Outcome], r)
	}

	fmt.Fprintf(w, "Reasons (%d):\n", len(v.Reasons))

	for _, outcome := range outcomeOrder {
		group := byOutcome[outcome]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s %s\n", outcomeMarker[outcome], outcome)
		for _, r := range group {
			res := ""
			if r.Resource != "" {
				res = " [" + r.Resource + "]"
			}
			fmt.Fprintf(w, "    - %s: %s%s\n", r.Code, r.Message, res)
		}
	}
}

// WriteExplainJSON writes the verdicts for one control as indented JSON to w.
//
// When verdicts is non-empty, the output is:
//
//	{"verdicts": [ ...verdict objects... ]}
//
// When verdicts is empty (control not in the report), the output is:
//
//	{"error": "No verdict found for control X"}
func WriteExplainJSON(w io.Writer, verdicts []models.Verdict, controlID string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if len(verdicts) == 0 {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No verdict found for control %s", controlID),
		})
	}
	return enc.Encode(map[string]any{
		"verdicts": verdicts,
	})
}
