package models

import "time"

// AuditSummary aggregates verdict counts across all evaluated controls and regions.
type AuditSummary struct {
	TotalVerdicts int `json:"total_verdicts"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Inconclusive  int `json:"inconclusive"`
	Unavailable   int `json:"unavailable"`
	// Enforced is true when the active policy's enforcement threshold was hit.
	Enforced bool `json:"enforced"`
}

// AuditReport is the top-level output of an alerting-chain audit run.
type AuditReport struct {
	ReportID      string       `json:"report_id"`
	GeneratedAt   time.Time    `json:"generated_at"`
	Profile       string       `json:"profile"`
	AccountID     string       `json:"account_id"`
	PrimaryRegion string       `json:"primary_region,omitempty"`
	Regions       []string     `json:"regions"`
	Summary       AuditSummary `json:"summary"`
	Verdicts      []Verdict    `json:"verdicts"`
}

// ComputeSummary counts verdicts by status.
func ComputeSummary(verdicts []Verdict) AuditSummary {
	s := AuditSummary{TotalVerdicts: len(verdicts)}
	for _, v := range verdicts {
		switch v.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusInconclusive:
			s.Inconclusive++
		case StatusUnavailable:
			s.Unavailable++
		}
	}
	return s
}
