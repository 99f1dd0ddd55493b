package common

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"
)

// DefaultAWSClientProvider is the production implementation of AWSClientProvider.
// It reads credentials from the standard AWS shared config and credentials files
// (~/.aws/config and ~/.aws/credentials) using the AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with mocks in unit tests.
type DefaultAWSClientProvider struct {
	factory       ClientFactory
	defaultRegion string
}

// FallbackRegion is used for profiles without a configured region.
const FallbackRegion = "us-east-1"

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet, defaultRegion: FallbackRegion}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f, defaultRegion: FallbackRegion}
}

// WithDefaultRegion sets the region used for profiles that configure none.
// An empty region keeps FallbackRegion.
func (p *DefaultAWSClientProvider) WithDefaultRegion(region string) *DefaultAWSClientProvider {
	if region != "" {
		p.defaultRegion = region
	}
	return p
}

// LoadProfile loads the AWS SDK config for the named profile and returns a
// ProfileConfig with the resolved account ID. The region falls back to
// defaultRegion when the profile has none.
//
// Pass an empty string to load the default profile.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		name := profileDisplayName(profile)
		return nil, fmt.Errorf("load AWS profile %q: %w", name, err)
	}

	if cfg.Region == "" {
		cfg.Region = p.defaultRegion
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// LoadAllProfiles loads every profile declared in the shared credentials and
// config files. Profiles that fail to load are logged and skipped.
func (p *DefaultAWSClientProvider) LoadAllProfiles(ctx context.Context) ([]*ProfileConfig, error) {
	names, err := discoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}

	var profiles []*ProfileConfig
	for _, name := range names {
		arg := name
		if name == "default" {
			arg = ""
		}
		pc, loadErr := p.LoadProfile(ctx, arg)
		if loadErr != nil {
			zerolog.Ctx(ctx).Warn().Err(loadErr).Str("profile", name).Msg("skipping AWS profile")
			continue
		}
		profiles = append(profiles, pc)
	}

	return profiles, nil
}

// GetActiveRegions returns the regions the account has opted into, sorted.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// ConfigForRegion returns a copy of cfg.Config pinned to region. The alerting
// gateway builds its region-scoped clients from it.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config
	regional.Region = region
	return regional
}

// profileDisplayName returns a human-readable profile identifier. An empty
// string (the default profile) is shown as "default".
func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// resolveAccountID returns the account behind the loaded credentials.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if aws.ToString(out.Account) == "" {
		return "", errors.New("STS GetCallerIdentity returned no account")
	}
	return aws.ToString(out.Account), nil
}

// discoverProfileNames returns the deduplicated profile names found in the
// shared credentials and config files, credentials first.
func discoverProfileNames() ([]string, error) {
	credPath, cfgPath, err := sharedFilePaths()
	if err != nil {
		return nil, err
	}

	credProfiles, err := profilesInFile(credPath, false)
	if err != nil {
		return nil, err
	}
	cfgProfiles, err := profilesInFile(cfgPath, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		all = append(all, name)
	}
	return all, nil
}

// sharedFilePaths resolves the shared credentials and config files the same
// way the SDK does: AWS_SHARED_CREDENTIALS_FILE and AWS_CONFIG_FILE win over
// the files under ~/.aws.
func sharedFilePaths() (credentials, config string, err error) {
	credentials = os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	config = os.Getenv("AWS_CONFIG_FILE")
	if credentials != "" && config != "" {
		return credentials, config, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve home directory: %w", err)
	}
	if credentials == "" {
		credentials = filepath.Join(home, ".aws", "credentials")
	}
	if config == "" {
		config = filepath.Join(home, ".aws", "config")
	}
	return credentials, config, nil
}

// profilesInFile returns the profile names declared in one shared file. In
// the config file only [default] and [profile <name>] sections are profiles;
// sso-session and services sections are skipped. A missing file yields nil.
func profilesInFile(path string, configFile bool) ([]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var names []string
	for _, section := range f.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		if configFile && name != "default" {
			rest, ok := strings.CutPrefix(name, "profile ")
			if !ok {
				continue
			}
			name = strings.TrimSpace(rest)
		}
		names = append(names, name)
	}
	return names, nil
}
