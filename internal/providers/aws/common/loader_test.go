package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	account *string
	err     error
}

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: f.account}, nil
}

type fakeEC2 struct {
	regions []string
	err     error
}

func (f fakeEC2) DescribeRegions(context.Context, *ec2.DescribeRegionsInput, ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	out.Regions = append(out.Regions, ec2types.Region{})
	return out, nil
}

// ── account & regions ─────────────────────────────────────────────────────────

func TestResolveAccountID(t *testing.T) {
	id, err := resolveAccountID(context.Background(), fakeSTS{account: aws.String("123456789012")})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	_, err = resolveAccountID(context.Background(), fakeSTS{})
	assert.Error(t, err, "nil account must be an error")

	_, err = resolveAccountID(context.Background(), fakeSTS{err: errors.New("expired token")})
	assert.ErrorContains(t, err, "expired token")
}

func TestGetActiveRegions_SortedAndSkipsNil(t *testing.T) {
	p := NewDefaultAWSClientProvider()
	pc := &ProfileConfig{
		ProfileName: "default",
		Clients:     &ClientSet{EC2: fakeEC2{regions: []string{"us-west-2", "eu-west-1", "us-east-1"}}},
	}

	regions, err := p.GetActiveRegions(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1", "us-east-1", "us-west-2"}, regions)
}

func TestGetActiveRegions_Error(t *testing.T) {
	p := NewDefaultAWSClientProvider()
	pc := &ProfileConfig{ProfileName: "prod", Clients: &ClientSet{EC2: fakeEC2{err: errors.New("denied")}}}

	_, err := p.GetActiveRegions(context.Background(), pc)
	assert.ErrorContains(t, err, `profile "prod"`)
}

func TestConfigForRegion_DoesNotMutateProfile(t *testing.T) {
	p := NewDefaultAWSClientProvider()
	pc := &ProfileConfig{Config: aws.Config{Region: "us-east-1"}}

	regional := p.ConfigForRegion(pc, "ap-south-1")
	assert.Equal(t, "ap-south-1", regional.Region)
	assert.Equal(t, "us-east-1", pc.Config.Region)
}

func TestWithDefaultRegion(t *testing.T) {
	p := NewDefaultAWSClientProvider().WithDefaultRegion("")
	assert.Equal(t, FallbackRegion, p.defaultRegion)

	p.WithDefaultRegion("eu-north-1")
	assert.Equal(t, "eu-north-1", p.defaultRegion)
}

// ── profile discovery ─────────────────────────────────────────────────────────

func TestProfilesInFile_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := "[default]\nregion = us-east-1\n\n[profile staging]\nregion = eu-west-1\n\n" +
		"[sso-session corp]\nsso_region = us-east-1\n\n[profile prod]\nregion = us-east-2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	names, err := profilesInFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "staging", "prod"}, names)
}

func TestProfilesInFile_Credentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "[default]\naws_access_key_id = AKIA1\n\n[audit]\naws_access_key_id = AKIA2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	names, err := profilesInFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "audit"}, names)
}

func TestProfilesInFile_Missing(t *testing.T) {
	names, err := profilesInFile(filepath.Join(t.TempDir(), "credentials"), false)
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestDiscoverProfileNames_EnvOverridesAndDedupe(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "creds")
	cfg := filepath.Join(dir, "cfg")
	require.NoError(t, os.WriteFile(creds, []byte("[default]\nk = v\n[audit]\nk = v\n"), 0o600))
	require.NoError(t, os.WriteFile(cfg, []byte("[profile audit]\nregion = eu-west-1\n[profile ops]\nregion = us-west-2\n"), 0o600))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", creds)
	t.Setenv("AWS_CONFIG_FILE", cfg)

	names, err := discoverProfileNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "audit", "ops"}, names)
}
