package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	"github.com/pankaj-dahiya-devops/alertchain/internal/policy"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
	"github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rulepacks/cis"
	"github.com/pankaj-dahiya-devops/alertchain/internal/rules"
)

// defaultRegionConcurrency caps the number of regions audited in parallel.
const defaultRegionConcurrency = 5

// ErrNoRegion is returned when an offline snapshot names no region and none
// was given explicitly.
var ErrNoRegion = errors.New("snapshot has no region; pass --region")

// AlertingEngine implements Engine for the alerting-chain controls.
// It never calls AWS SDK clients directly; gateways come from the factory.
type AlertingEngine struct {
	provider common.AWSClientProvider
	gateways GatewayFactory
	registry rules.RuleRegistry
	policy   *policy.PolicyConfig

	// RegionConcurrency bounds regions audited in parallel. Zero means 5.
	RegionConcurrency int

	// LookupConcurrency bounds parallel gateway lookups within one chain
	// step. Zero uses the resolver default.
	LookupConcurrency int
}

// NewAlertingEngine constructs an AlertingEngine wired to the supplied
// provider, gateway factory, and rule registry. policyCfg may be nil.
func NewAlertingEngine(
	provider common.AWSClientProvider,
	gateways GatewayFactory,
	registry rules.RuleRegistry,
	policyCfg *policy.PolicyConfig,
) *AlertingEngine {
	return &AlertingEngine{
		provider: provider,
		gateways: gateways,
		registry: registry,
		policy:   policyCfg,
	}
}

// RunAudit implements Engine.
func (e *AlertingEngine) RunAudit(ctx context.Context, opts AuditOptions) (*models.AuditReport, error) {
	switch {
	case opts.Snapshot != nil:
		return e.runSnapshot(ctx, opts)
	case opts.AllProfiles:
		return e.runAllProfiles(ctx, opts)
	default:
		return e.runSingleProfile(ctx, opts)
	}
}

// runSingleProfile audits every requested region of one AWS profile.
func (e *AlertingEngine) runSingleProfile(ctx context.Context, opts AuditOptions) (*models.AuditReport, error) {
	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	regions, err := e.resolveRegions(ctx, profile, opts.Regions)
	if err != nil {
		return nil, fmt.Errorf("resolve regions for profile %q: %w", profile.ProfileName, err)
	}

	primary := e.primaryRegion(opts)
	verdicts, err := e.auditRegions(ctx, profile, regions, primary)
	if err != nil {
		return nil, err
	}
	return e.buildReport(profile.ProfileName, profile.AccountID, primary, regions, verdicts), nil
}

// runAllProfiles audits every configured AWS profile and concatenates the
// verdicts. Profile failures are skipped non-fatally; an error is returned
// only when no profile can be audited.
func (e *AlertingEngine) runAllProfiles(ctx context.Context, opts AuditOptions) (*models.AuditReport, error) {
	profiles, err := e.provider.LoadAllProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load all profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no AWS profiles found")
	}

	var (
		allVerdicts []models.Verdict
		allRegions  []string
		seenRegions = make(map[string]struct{})
		audited     int
	)

	primary := e.primaryRegion(opts)
	for _, profile := range profiles {
		log := zerolog.Ctx(ctx).With().Str("profile", profile.ProfileName).Logger()

		regions, err := e.resolveRegions(ctx, profile, opts.Regions)
		if err != nil {
			log.Warn().Err(err).Msg("skipping profile: region discovery failed")
			continue
		}
		verdicts, err := e.auditRegions(ctx, profile, regions, primary)
		if err != nil {
			log.Warn().Err(err).Msg("skipping profile: audit failed")
			continue
		}
		audited++
		allVerdicts = append(allVerdicts, verdicts...)
		for _, r := range regions {
			if _, seen := seenRegions[r]; !seen {
				seenRegions[r] = struct{}{}
				allRegions = append(allRegions, r)
			}
		}
	}

	if audited == 0 {
		return nil, fmt.Errorf("all profiles failed; no controls evaluated")
	}
	return e.buildReport("multi", "", primary, allRegions, allVerdicts), nil
}

// runSnapshot evaluates an offline snapshot without touching AWS.
func (e *AlertingEngine) runSnapshot(ctx context.Context, opts AuditOptions) (*models.AuditReport, error) {
	region := opts.Snapshot.Region
	if len(opts.Regions) > 0 {
		region = opts.Regions[0]
	}
	if region == "" {
		return nil, ErrNoRegion
	}

	primary := e.primaryRegion(opts)
	rctx := e.ruleContext("", "snapshot", region, primary, awsalerting.NewStaticGateway(*opts.Snapshot))
	verdicts := e.registry.EvaluateAll(ctx, rctx)
	return e.buildReport("snapshot", "", primary, []string{region}, verdicts), nil
}

// resolveRegions returns the explicit region list or discovers active regions.
func (e *AlertingEngine) resolveRegions(
	ctx context.Context,
	profile *common.ProfileConfig,
	explicit []string,
) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	return e.provider.GetActiveRegions(ctx, profile)
}

// auditRegions evaluates every registered control in each region, in
// parallel, and returns the verdicts grouped by region in input order.
func (e *AlertingEngine) auditRegions(
	ctx context.Context,
	profile *common.ProfileConfig,
	regions []string,
	primary string,
) ([]models.Verdict, error) {
	limit := e.RegionConcurrency
	if limit <= 0 {
		limit = defaultRegionConcurrency
	}

	perRegion := make([][]models.Verdict, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			rctx := e.ruleContext(profile.AccountID, profile.ProfileName, region, primary,
				e.gateways(profile, region))
			perRegion[i] = e.registry.EvaluateAll(gctx, rctx)
			zerolog.Ctx(ctx).Debug().
				Str("profile", profile.ProfileName).
				Str("region", region).
				Int("verdicts", len(perRegion[i])).
				Msg("region audited")
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("audit profile %q: %w", profile.ProfileName, err)
	}

	verdicts := []models.Verdict{}
	for _, vs := range perRegion {
		verdicts = append(verdicts, vs...)
	}
	return verdicts, nil
}

// ruleContext builds the evaluation context for one region. Policy
// attributes are copied so concurrent regions never share a map.
func (e *AlertingEngine) ruleContext(
	accountID, profile, region, primary string,
	gw awsalerting.Gateway,
) rules.RuleContext {
	attrs := make(map[string]string)
	if e.policy != nil {
		maps.Copy(attrs, e.policy.Attributes)
	}
	if primary != "" {
		attrs[cis.PrimaryRegionAttribute] = primary
	}
	return rules.RuleContext{
		AccountID:         accountID,
		Profile:           profile,
		Env:               rules.Env{Region: region, Attributes: attrs},
		Gateway:           gw,
		LookupConcurrency: e.LookupConcurrency,
	}
}

// primaryRegion prefers the explicit option over the policy attribute.
func (e *AlertingEngine) primaryRegion(opts AuditOptions) string {
	if opts.PrimaryRegion != "" {
		return opts.PrimaryRegion
	}
	return policy.Attribute(cis.PrimaryRegionAttribute, e.policy)
}

// buildReport assembles the final AuditReport.
func (e *AlertingEngine) buildReport(
	profile, accountID, primary string,
	regions []string,
	verdicts []models.Verdict,
) *models.AuditReport {
	summary := models.ComputeSummary(verdicts)
	summary.Enforced = policy.ShouldFail(verdicts, e.policy)
	return &models.AuditReport{
		ReportID:      uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		Profile:       profile,
		AccountID:     accountID,
		PrimaryRegion: primary,
		Regions:       regions,
		Summary:       summary,
		Verdicts:      verdicts,
	}
}
