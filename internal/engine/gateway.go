package engine

import (
	"github.com/pankaj-dahiya-devops/alertchain/internal/metrics"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
	"github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/common"
)

// GatewayFactory builds the resource gateway for one profile and region.
// A fresh gateway is built per region and run so every control evaluated in
// that region shares one snapshot.
type GatewayFactory func(profile *common.ProfileConfig, region string) awsalerting.Gateway

// NewAWSGatewayFactory returns the production factory: SDK-backed reads,
// wrapped with retries, rate limiting, and a circuit breaker, then memoized.
func NewAWSGatewayFactory(
	provider common.AWSClientProvider,
	resilience awsalerting.ResilienceConfig,
	m *metrics.Metrics,
) GatewayFactory {
	return func(profile *common.ProfileConfig, region string) awsalerting.Gateway {
		regional := provider.ConfigForRegion(profile, region)
		sdk := awsalerting.NewDefaultGateway(regional)
		return awsalerting.NewSnapshotGateway(
			awsalerting.NewResilientGateway(sdk, region, resilience, m),
		)
	}
}
