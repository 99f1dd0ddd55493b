package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/alertchain/internal/policy"
	"github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rulepacks/cis"
)

// DoctorResult is the structured output of dp doctor. It can be serialised to
// JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Regions     int    `json:"regions,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Config struct {
		// PrimaryRegion is empty when no primary region is configured, in
		// which case the non-primary-region impact override never applies.
		PrimaryRegion string `json:"primary_region,omitempty"`
	} `json:"config"`

	Policy struct {
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorOptions are the inputs to runDoctor besides the AWS provider.
type doctorOptions struct {
	format        string
	profile       string
	policyPath    string
	primaryRegion string
}

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var opts doctorOptions
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg != nil {
				if opts.profile == "" {
					opts.profile = g.cfg.AWS.DefaultProfile
				}
				opts.primaryRegion = g.cfg.AWS.PrimaryRegion
			}
			provider := common.NewDefaultAWSClientProvider()
			if g.cfg != nil {
				provider.WithDefaultRegion(g.cfg.AWS.DefaultRegion)
			}
			result, err := runDoctor(cmd.Context(), provider, cmd.OutOrStdout(), opts)
			if err != nil {
				// Rendering failure; main reports it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text follows the rendered result.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&opts.profile, "profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().StringVar(&opts.policyPath, "policy", policy.DefaultPolicyFile, "Policy file to validate (optional)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, opts doctorOptions) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, opts)

	switch opts.format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, opts doctorOptions) DoctorResult {
	var result DoctorResult

	// AWS: credentials → STS account ID → region discovery.
	// An empty profile string selects the default credential chain.
	result.AWS.Profile = opts.profile
	profileCfg, err := awsProvider.LoadProfile(ctx, opts.profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		regions, err := awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
			result.AWS.Regions = len(regions)
		}
	}

	// Policy: stat → load → validate (file is optional).
	policyPath := opts.policyPath
	if policyPath == "" {
		policyPath = policy.DefaultPolicyFile
	}
	_, statErr := os.Stat(policyPath)
	if statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(cfg, builtinControlIDs())
			if len(errs) == 0 {
				result.Policy.Valid = true
			} else {
				for _, e := range errs {
					result.Policy.Errors = append(result.Policy.Errors, e.Error())
				}
			}
			if opts.primaryRegion == "" {
				opts.primaryRegion = policy.Attribute(cis.PrimaryRegionAttribute, cfg)
			}
		}
	} else if !os.IsNotExist(statErr) {
		// Present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.Config.PrimaryRegion = opts.primaryRegion

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", fmt.Sprintf("%d active", result.AWS.Regions))
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.PrimaryRegion != "" {
		doctorPrint(w, "Primary region", result.Config.PrimaryRegion, "")
	} else {
		doctorPrint(w, "Primary region", "Not set", "impact override disabled")
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, "dp.yaml present", "Not found (optional)", "")
	} else {
		doctorPrint(w, "dp.yaml present", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
