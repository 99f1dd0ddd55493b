package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	"github.com/pankaj-dahiya-devops/alertchain/internal/output"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func renderToString(verdicts []models.Verdict, opts output.TableOptions) string {
	var buf bytes.Buffer
	output.RenderTable(&buf, verdicts, opts)
	return buf.String()
}

func oneVerdict(overrides ...func(*models.Verdict)) models.Verdict {
	v := models.Verdict{
		ControlID: "aws-foundations-cis-4.1",
		Title:     "Ensure unauthorized API calls are monitored",
		Region:    "us-east-1",
		Strategy:  models.StrategyFilterFirst,
		Status:    models.StatusFailed,
		Impact:    0.5,
		Reasons: []models.Reason{
			{Code: models.ReasonMetricFilterFound, Outcome: models.OutcomePass, Message: "metric filter unauthorized found"},
			{Code: models.ReasonAlarmMissing, Outcome: models.OutcomeFail, Message: "no alarm on CIS/UnauthorizedAPICalls"},
		},
	}
	for _, fn := range overrides {
		fn(&v)
	}
	return v
}

func passed(v *models.Verdict) {
	v.ControlID = "cis-aws-foundations-3.10"
	v.Status = models.StatusPassed
	v.Passed = true
}

// ── basic rendering ───────────────────────────────────────────────────────────

func TestRenderTable_Empty(t *testing.T) {
	out := renderToString(nil, output.TableOptions{})
	if strings.TrimSpace(out) != "No verdicts." {
		t.Errorf("unexpected output for empty input: %q", out)
	}
}

func TestRenderTable_HeaderAndRow(t *testing.T) {
	out := renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, separator, and one row; got %d lines:\n%s", len(lines), out)
	}
	for _, col := range []string{"CONTROL", "REGION", "STATUS", "IMPACT"} {
		if !strings.Contains(lines[0], col) {
			t.Errorf("header missing %s: %q", col, lines[0])
		}
	}
	if len(lines[1]) != len(lines[0]) {
		t.Errorf("separator width %d must match header width %d", len(lines[1]), len(lines[0]))
	}
	for _, want := range []string{"aws-foundations-cis-4.1", "us-east-1", "FAILED", "0.50"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row missing %q: %q", want, lines[2])
		}
	}
}

// ── TITLE column ──────────────────────────────────────────────────────────────

func TestRenderTable_TitleColumn(t *testing.T) {
	out := renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{IncludeTitle: true})
	if !strings.Contains(out, "TITLE") || !strings.Contains(out, "unauthorized API calls") {
		t.Errorf("expected title column\ngot:\n%s", out)
	}

	out = renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{})
	if strings.Contains(out, "TITLE") {
		t.Errorf("TITLE column must not appear when IncludeTitle=false\ngot:\n%s", out)
	}
}

// ── reasons ───────────────────────────────────────────────────────────────────

func TestRenderTable_Reasons(t *testing.T) {
	out := renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{IncludeReasons: true})
	if !strings.Contains(out, "[fail] alarm_missing: no alarm on CIS/UnauthorizedAPICalls") {
		t.Errorf("expected fail reason line\ngot:\n%s", out)
	}
	if !strings.Contains(out, "[pass] metric_filter_found") {
		t.Errorf("expected pass reason line\ngot:\n%s", out)
	}
}

// ── filtering ─────────────────────────────────────────────────────────────────

func TestRenderTable_FailuresOnly(t *testing.T) {
	verdicts := []models.Verdict{oneVerdict(passed), oneVerdict()}
	out := renderToString(verdicts, output.TableOptions{FailuresOnly: true})
	if strings.Contains(out, "cis-aws-foundations-3.10") {
		t.Errorf("passed verdict must be hidden\ngot:\n%s", out)
	}
	if !strings.Contains(out, "aws-foundations-cis-4.1") {
		t.Errorf("failed verdict must be shown\ngot:\n%s", out)
	}

	out = renderToString([]models.Verdict{oneVerdict(passed)}, output.TableOptions{FailuresOnly: true})
	if strings.TrimSpace(out) != "No verdicts." {
		t.Errorf("expected empty table; got:\n%s", out)
	}
}

// ── colour ────────────────────────────────────────────────────────────────────

func TestColorStatus(t *testing.T) {
	if got := output.ColorStatus(models.StatusFailed, false); got != "FAILED" {
		t.Errorf("uncoloured status = %q", got)
	}
	got := output.ColorStatus(models.StatusPassed, true)
	if !strings.HasPrefix(got, "\033[") || !strings.Contains(got, "PASSED") {
		t.Errorf("coloured status = %q", got)
	}
}

func TestRenderTable_ColoredKeepsAlignment(t *testing.T) {
	plain := renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{})
	colored := renderToString([]models.Verdict{oneVerdict()}, output.TableOptions{Colored: true})
	if !strings.Contains(colored, "\033[0;31mFAILED\033[0m") {
		t.Fatalf("expected red FAILED\ngot:\n%q", colored)
	}
	stripped := strings.NewReplacer("\033[0;31m", "", "\033[0m", "").Replace(colored)
	if stripped != plain {
		t.Errorf("colour codes must not change layout\nplain:\n%s\ncolored:\n%s", plain, stripped)
	}
}

// ── ShortenMessage ────────────────────────────────────────────────────────────

func TestShortenMessage(t *testing.T) {
	if got := output.ShortenMessage("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := output.ShortenMessage("abcdefghij", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := output.ShortenMessage("abcdefghij", 1); got != "a..." {
		t.Errorf("max below 4 must be treated as 4; got %q", got)
	}
}
