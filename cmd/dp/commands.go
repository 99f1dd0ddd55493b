package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/alertchain/internal/config"
	"github.com/pankaj-dahiya-devops/alertchain/internal/engine"
	"github.com/pankaj-dahiya-devops/alertchain/internal/metrics"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	"github.com/pankaj-dahiya-devops/alertchain/internal/output"
	"github.com/pankaj-dahiya-devops/alertchain/internal/policy"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
	"github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/alertchain/internal/render"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rulepacks/cis"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rules"
	"github.com/pankaj-dahiya-devops/alertchain/internal/version"
)

// errPolicyEnforced is returned when the audit breaches the policy's
// enforcement block. main maps it to exit status 2.
var errPolicyEnforced = errors.New("policy enforcement threshold exceeded")

// globalOptions holds the persistent flags and the configuration loaded
// from them before any subcommand runs.
type globalOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "dp",
		Short: "dp: CloudTrail alerting-chain compliance auditor",
		// main prints the error once and picks the exit status.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg

			level := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				level = g.logLevel
			}
			lvl, err := zerolog.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(lvl).With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default ~/.config/alertchain/config.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error")

	root.AddCommand(newAWSCmd(g))
	root.AddCommand(newControlsCmd())
	root.AddCommand(newDoctorCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

func newAWSCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "AWS provider commands",
	}
	cmd.AddCommand(newAuditCmd(g))
	return cmd
}

func newAuditCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run an audit against an AWS account",
	}
	cmd.AddCommand(newAlertingCmd(g))
	return cmd
}

// auditFlags are the flags of dp aws audit alerting.
type auditFlags struct {
	profile       string
	allProfiles   bool
	regions       []string
	primaryRegion string
	policyPath    string
	snapshotPath  string
	reportFmt     string
	summary       bool
	reasons       bool
	failuresOnly  bool
	output        string
	metricsFile   string
	explain       string
}

func newAlertingCmd(g *globalOptions) *cobra.Command {
	var f auditFlags

	cmd := &cobra.Command{
		Use:   "alerting",
		Short: "Verify CloudTrail → metric filter → alarm → SNS alerting chains",
		Long: `Evaluates every alerting-chain control in each region: a CloudTrail trail
delivering to a CloudWatch Logs group, a metric filter with the control's
pattern, an alarm on the filter's metric, and an SNS topic with at least one
confirmed subscriber.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			policyCfg, err := loadPolicy(f.policyPath)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			registry := rules.NewDefaultRuleRegistry()
			registry.MaxConcurrency = g.cfg.Audit.RuleConcurrency
			registry.Metrics = m
			for _, r := range cis.FromControls(policy.ApplyPolicy(cis.Controls(), policyCfg)) {
				registry.Register(r)
			}

			provider := common.NewDefaultAWSClientProvider().WithDefaultRegion(g.cfg.AWS.DefaultRegion)
			eng := engine.NewAlertingEngine(
				provider,
				engine.NewAWSGatewayFactory(provider, g.cfg.Gateway.Resilience(), m),
				registry,
				policyCfg,
			)
			eng.RegionConcurrency = g.cfg.Audit.RegionConcurrency
			eng.LookupConcurrency = g.cfg.Audit.BranchConcurrency

			opts := engine.AuditOptions{
				Profile:       f.profile,
				AllProfiles:   f.allProfiles,
				Regions:       f.regions,
				PrimaryRegion: f.primaryRegion,
			}
			if opts.Profile == "" {
				opts.Profile = g.cfg.AWS.DefaultProfile
			}
			if opts.PrimaryRegion == "" {
				opts.PrimaryRegion = g.cfg.AWS.PrimaryRegion
			}
			if f.snapshotPath != "" {
				snap, err := awsalerting.LoadSnapshot(f.snapshotPath)
				if err != nil {
					return err
				}
				opts.Snapshot = snap
			}

			report, err := eng.RunAudit(ctx, opts)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			if f.metricsFile != "" {
				if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics file %q: %w", f.metricsFile, err)
				}
			}
			return renderReport(cmd.OutOrStdout(), report, f)
		},
	}

	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().BoolVar(&f.allProfiles, "all-profiles", false, "Audit all configured AWS profiles")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "AWS region(s) to audit (default: all active regions)")
	cmd.Flags().StringVar(&f.primaryRegion, "primary-region", "", "Account's primary region; other regions report impact 0")
	cmd.Flags().StringVar(&f.policyPath, "policy", policy.DefaultPolicyFile, "Policy file (optional)")
	cmd.Flags().StringVar(&f.snapshotPath, "snapshot", "", "Evaluate a recorded JSON resource snapshot instead of reading AWS")
	cmd.Flags().StringVar(&f.reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print compact summary: status counts and top failing controls by impact")
	cmd.Flags().BoolVar(&f.reasons, "reasons", false, "Print every verdict's reasons below its table row")
	cmd.Flags().BoolVar(&f.failuresOnly, "failures-only", false, "Hide PASSED verdicts in table output")
	cmd.Flags().StringVar(&f.output, "output", "", "Write full JSON report to this file path (in addition to stdout output)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics for this run to a textfile-collector file")
	cmd.Flags().StringVar(&f.explain, "explain", "", "Explain the verdicts of one control ID instead of printing the report")

	return cmd
}

// renderReport writes the report in the requested format and returns
// errPolicyEnforced when the enforcement block was hit.
func renderReport(w io.Writer, report *models.AuditReport, f auditFlags) error {
	if f.output != "" {
		if err := writeReportToFile(f.output, report); err != nil {
			return err
		}
	}

	switch {
	case f.explain != "":
		if err := printExplanation(w, report, f); err != nil {
			return err
		}
	case f.summary:
		printSummary(w, report)
	case engine.ReportFormat(f.reportFmt) == engine.ReportFormatJSON:
		if err := printJSON(w, report); err != nil {
			return err
		}
	default:
		printTable(w, report, output.TableOptions{
			IncludeTitle:   true,
			IncludeReasons: f.reasons,
			FailuresOnly:   f.failuresOnly,
		})
	}

	if report.Summary.Enforced {
		return errPolicyEnforced
	}
	return nil
}

// printExplanation renders every verdict of f.explain. An unknown control is
// an error in table format; JSON format reports it in the payload instead.
func printExplanation(w io.Writer, report *models.AuditReport, f auditFlags) error {
	verdicts := render.FindVerdicts(report.Verdicts, f.explain)
	if engine.ReportFormat(f.reportFmt) == engine.ReportFormatJSON {
		return render.WriteExplainJSON(w, verdicts, f.explain)
	}
	if len(verdicts) == 0 {
		return fmt.Errorf("no verdict found for control %q", f.explain)
	}
	for i, v := range verdicts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		render.RenderVerdictExplanation(w, v)
	}
	return nil
}

// loadPolicy loads and validates the optional policy file. A missing file
// yields a nil config.
func loadPolicy(path string) (*policy.PolicyConfig, error) {
	cfg, err := policy.LoadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if cfg == nil {
		return nil, nil
	}
	if errs := policy.Validate(cfg, builtinControlIDs()); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy %s: %w", path, errors.Join(errs...))
	}
	return cfg, nil
}

// builtinControlIDs returns the IDs of the built-in control catalog.
func builtinControlIDs() []string {
	var ids []string
	for _, c := range cis.Controls() {
		ids = append(ids, c.ID)
	}
	return ids
}

func newControlsCmd() *cobra.Command {
	var (
		policyPath string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List the effective alerting-chain controls",
		RunE: func(cmd *cobra.Command, args []string) error {
			policyCfg, err := loadPolicy(policyPath)
			if err != nil {
				return err
			}
			controls := policy.ApplyPolicy(cis.Controls(), policyCfg)
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(controls)
			}
			printControls(cmd.OutOrStdout(), controls)
			return nil
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", policy.DefaultPolicyFile, "Policy file (optional)")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// printControls renders one line per control.
func printControls(w io.Writer, controls []rules.Control) {
	fmt.Fprintf(w, "%-28s  %-12s  %-6s  %s\n", "CONTROL", "STRATEGY", "IMPACT", "TITLE")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, c := range controls {
		fmt.Fprintf(w, "%-28s  %-12s  %-6.2f  %s\n", c.ID, c.Strategy, c.Impact, c.Title)
	}
}

// printJSON writes the report as indented JSON to w.
func printJSON(w io.Writer, report *models.AuditReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.AuditReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printSummary renders a compact summary view to w:
//   - Account / profile / region header
//   - Per-status verdict counts
//   - Top 5 non-passing verdicts ranked by impact
//
// It reuses the already-computed AuditReport; no engine logic is duplicated.
func printSummary(w io.Writer, report *models.AuditReport) {
	s := report.Summary

	fmt.Fprintf(w, "Account:  %s\n", report.AccountID)
	fmt.Fprintf(w, "Profile:  %s\n", report.Profile)
	fmt.Fprintf(w, "Regions:  %d\n", len(report.Regions))
	if report.PrimaryRegion != "" {
		fmt.Fprintf(w, "Primary:  %s\n", report.PrimaryRegion)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Verdicts:  %d\n", s.TotalVerdicts)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Status Breakdown")
	fmt.Fprintf(w, "  %-12s  %d\n", models.StatusPassed, s.Passed)
	fmt.Fprintf(w, "  %-12s  %d\n", models.StatusFailed, s.Failed)
	fmt.Fprintf(w, "  %-12s  %d\n", models.StatusInconclusive, s.Inconclusive)
	fmt.Fprintf(w, "  %-12s  %d\n", models.StatusUnavailable, s.Unavailable)
	if s.Enforced {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Policy enforcement: FAILED")
	}

	top := topVerdictsByImpact(report.Verdicts, 5)
	if len(top) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top Failing Controls by Impact")
	fmt.Fprintf(w, "  %-28s  %-15s  %-12s  %s\n", "CONTROL", "REGION", "STATUS", "IMPACT")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 68))
	for _, v := range top {
		fmt.Fprintf(w, "  %-28s  %-15s  %-12s  %.2f\n", v.ControlID, v.Region, string(v.Status), v.Impact)
	}
}

// topVerdictsByImpact returns up to n non-passing verdicts ordered by impact
// descending. Ties keep report order. The original slice is not modified.
func topVerdictsByImpact(verdicts []models.Verdict, n int) []models.Verdict {
	var failing []models.Verdict
	for _, v := range verdicts {
		if v.Status != models.StatusPassed {
			failing = append(failing, v)
		}
	}
	sort.SliceStable(failing, func(i, j int) bool {
		return failing[i].Impact > failing[j].Impact
	})
	if n > len(failing) {
		n = len(failing)
	}
	return failing[:n]
}

// printTable renders a one-line header followed by the verdict table.
func printTable(w io.Writer, report *models.AuditReport, opts output.TableOptions) {
	s := report.Summary
	fmt.Fprintf(w,
		"Profile: %-20s  Account: %-14s  Regions: %d  Passed: %d  Failed: %d  Inconclusive: %d  Unavailable: %d\n",
		report.Profile,
		report.AccountID,
		len(report.Regions),
		s.Passed,
		s.Failed,
		s.Inconclusive,
		s.Unavailable,
	)
	fmt.Fprintln(w)
	output.RenderTable(w, report.Verdicts, opts)
}
