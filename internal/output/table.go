package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// ANSI color codes for status output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[0;33m"
	ansiBlue   = "\033[0;34m"
)

// TableOptions controls which columns RenderTable renders and how status is coloured.
type TableOptions struct {
	// Colored wraps status labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeTitle adds a TITLE column.
	IncludeTitle bool

	// IncludeReasons prints each verdict's reasons indented below its row.
	IncludeReasons bool

	// FailuresOnly hides PASSED verdicts.
	FailuresOnly bool
}

// statusColor returns the ANSI code for status, or "" when uncoloured.
func statusColor(status models.VerdictStatus) string {
	switch status {
	case models.StatusPassed:
		return ansiGreen
	case models.StatusFailed:
		return ansiRed
	case models.StatusInconclusive:
		return ansiYellow
	case models.StatusUnavailable:
		return ansiBlue
	default:
		return ""
	}
}

// ColorStatus wraps a status string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorStatus(status models.VerdictStatus, colored bool) string {
	s := string(status)
	code := statusColor(status)
	if !colored || code == "" {
		return s
	}
	return code + s + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// statusCell returns the status padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func statusCell(status models.VerdictStatus, width int, colored bool) string {
	text := string(status)
	code := statusColor(status)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := max(width-len(text), 0)
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max bytes for ID/label columns.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "~"
}

// RenderTable writes a formatted verdict table to w.
// The separator line width is derived from the header row so all rows align.
//
// Column order:
//
//	CONTROL  REGION  STATUS  IMPACT  [TITLE]
func RenderTable(w io.Writer, verdicts []models.Verdict, opts TableOptions) {
	shown := verdicts
	if opts.FailuresOnly {
		shown = nil
		for _, v := range verdicts {
			if v.Status != models.StatusPassed {
				shown = append(shown, v)
			}
		}
	}

	if len(shown) == 0 {
		fmt.Fprintln(w, "No verdicts.")
		return
	}

	// Fixed column display widths.
	const (
		wControl = 28
		wRegion  = 15
		wStatus  = 12
		wImpact  = 6
		wTitle   = 60
		wReason  = 90
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wControl, "CONTROL"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wStatus, "STATUS"))
	hb.WriteString(fmt.Sprintf("  %-*s", wImpact, "IMPACT"))
	if opts.IncludeTitle {
		hb.WriteString(fmt.Sprintf("  %-*s", wTitle, "TITLE"))
	}
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, v := range shown {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wControl, truncateField(v.ControlID, wControl)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(v.Region, wRegion)))
		rb.WriteString("  " + statusCell(v.Status, wStatus, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wImpact, fmt.Sprintf("%.2f", v.Impact)))
		if opts.IncludeTitle {
			rb.WriteString("  " + ShortenMessage(v.Title, wTitle))
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))

		if opts.IncludeReasons {
			for _, r := range v.Reasons {
				fmt.Fprintf(w, "    [%s] %s: %s\n", r.Outcome, r.Code, ShortenMessage(r.Message, wReason))
			}
		}
	}
}
