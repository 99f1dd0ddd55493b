package policy

import (
	"testing"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

func impact(f float64) *float64 { return &f }

func TestShouldFail_NilConfig(t *testing.T) {
	verdicts := []models.Verdict{{Status: models.StatusFailed, Impact: 1}}
	if ShouldFail(verdicts, nil) {
		t.Error("nil cfg must return false")
	}
}

func TestShouldFail_NoEnforcementBlock(t *testing.T) {
	verdicts := []models.Verdict{
		{Status: models.StatusFailed, Impact: 1},
		{Status: models.StatusUnavailable},
		{Status: models.StatusInconclusive},
	}
	if ShouldFail(verdicts, &PolicyConfig{}) {
		t.Error("absent enforcement block must return false")
	}
}

func TestShouldFail_NoVerdicts(t *testing.T) {
	cfg := &PolicyConfig{Enforcement: EnforcementConfig{FailOnImpact: impact(0), FailOnUnavailable: true}}
	if ShouldFail(nil, cfg) {
		t.Error("no verdicts must return false")
	}
}

func TestShouldFail_ImpactThreshold(t *testing.T) {
	cfg := &PolicyConfig{Enforcement: EnforcementConfig{FailOnImpact: impact(0.5)}}

	cases := []struct {
		name string
		v    models.Verdict
		want bool
	}{
		{"failed above", models.Verdict{Status: models.StatusFailed, Impact: 0.7}, true},
		{"failed at threshold", models.Verdict{Status: models.StatusFailed, Impact: 0.5}, true},
		{"failed below", models.Verdict{Status: models.StatusFailed, Impact: 0.4}, false},
		{"failed outside primary region", models.Verdict{Status: models.StatusFailed, Impact: 0}, false},
		{"passed high impact", models.Verdict{Status: models.StatusPassed, Passed: true, Impact: 1}, false},
		{"inconclusive high impact", models.Verdict{Status: models.StatusInconclusive, Impact: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldFail([]models.Verdict{tc.v}, cfg); got != tc.want {
				t.Errorf("ShouldFail = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestShouldFail_Unavailable(t *testing.T) {
	verdicts := []models.Verdict{{Status: models.StatusUnavailable, Impact: 0.9}}
	if ShouldFail(verdicts, &PolicyConfig{}) {
		t.Error("unavailable must not fail unless fail_on_unavailable is set")
	}
	cfg := &PolicyConfig{Enforcement: EnforcementConfig{FailOnUnavailable: true}}
	if !ShouldFail(verdicts, cfg) {
		t.Error("expected failure with fail_on_unavailable")
	}
}

func TestShouldFail_Inconclusive(t *testing.T) {
	verdicts := []models.Verdict{{Status: models.StatusPassed, Passed: true}, {Status: models.StatusInconclusive}}
	cfg := &PolicyConfig{Enforcement: EnforcementConfig{FailOnInconclusive: true}}
	if !ShouldFail(verdicts, cfg) {
		t.Error("expected failure with fail_on_inconclusive")
	}
}
