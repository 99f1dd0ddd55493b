package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// AuditOptions configures a single audit run.
// It is the sole input to Engine.RunAudit.
type AuditOptions struct {
	// Profile is the named AWS profile to use. Empty means the default profile.
	Profile string

	// AllProfiles, when true, runs the audit across every configured AWS profile.
	AllProfiles bool

	// Regions is an explicit list of AWS regions to audit.
	// When empty the engine discovers and iterates all active regions.
	Regions []string

	// PrimaryRegion is the account's designated primary region. It takes
	// precedence over the policy's default_aws_region attribute.
	PrimaryRegion string

	// Snapshot, when set, is evaluated offline instead of reading AWS.
	// Profile, AllProfiles, and region discovery are ignored.
	Snapshot *awsalerting.Snapshot
}

// Engine is the central orchestration interface.
// It resolves profiles and regions, evaluates every control per region, and
// returns a fully populated AuditReport.
//
// Engine must not call AWS SDK clients directly; it delegates to the client
// provider and to the resource gateways built per region.
type Engine interface {
	RunAudit(ctx context.Context, opts AuditOptions) (*models.AuditReport, error)
}
