// Package chain resolves the CloudTrail alerting chain for a detection
// pattern: trail → log group → metric filter → alarm → SNS topics.
//
// Resolution only gathers resources. Missing resources are recorded as gaps
// on the returned Bundle; only gateway failures are returned as errors.
package chain

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/alertchain/internal/arns"
	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// defaultMaxConcurrency caps parallel gateway lookups within one step.
const defaultMaxConcurrency = 8

// Gap names the point at which a chain stops.
type Gap string

const (
	GapNone        Gap = ""
	GapNoLogGroup  Gap = "no_log_group"
	GapUnparseable Gap = "log_group_unparseable"
	GapNoFilter    Gap = "no_metric_filter"
	GapNoMetric    Gap = "metric_undefined"
	GapNoAlarm     Gap = "no_alarm"
)

// Spec identifies the chain to resolve.
type Spec struct {
	// Pattern is compared verbatim with stored metric filter patterns.
	Pattern  string
	Strategy models.Strategy
	// HydrateTrails fetches logging status and event selectors for every
	// trail on the chain. Only needed when trail compliance is checked.
	HydrateTrails bool
}

// TopicRef is one alarm action and the topic it resolved to. Topic is nil
// when the action is not an existing SNS topic.
type TopicRef struct {
	ARN   string
	Topic *models.NotificationTopic
}

// Link is the metric filter → alarm → topics tail of a chain.
type Link struct {
	Filter *models.MetricFilter
	Alarm  *models.Alarm
	// Topics has one entry per alarm action, in action order.
	Topics []TopicRef
}

// Gap reports where the tail stops. GapNoFilter and GapNoMetric are short
// circuits: nothing past the filter was looked up.
func (l Link) Gap() Gap {
	switch {
	case l.Filter == nil:
		return GapNoFilter
	case !l.Filter.HasMetric():
		return GapNoMetric
	case l.Alarm == nil:
		return GapNoAlarm
	default:
		return GapNone
	}
}

// ShortCircuited reports whether alarm and topic checks do not apply.
func (l Link) ShortCircuited() bool {
	g := l.Gap()
	return g == GapNoFilter || g == GapNoMetric
}

// Branch is one trail's chain under the trail-first strategy.
type Branch struct {
	Trail        models.Trail
	LogGroupName string
	// LogGroupGap is GapNoLogGroup or GapUnparseable when the trail's log
	// group could not be determined; Link is then empty.
	LogGroupGap Gap
	Link
}

// Gap reports where the branch stops.
func (b Branch) Gap() Gap {
	if b.LogGroupGap != GapNone {
		return b.LogGroupGap
	}
	return b.Link.Gap()
}

// Bundle is a resolved chain.
type Bundle struct {
	Spec Spec
	// Trails is every trail visible from the region, in discovery order.
	Trails []models.Trail

	// Filter-first results. LogGroupName is the filter's log group and
	// Associated holds the trails delivering to it. Unparseable holds the
	// trails whose log group ARN names no log group, so their association
	// cannot be decided.
	Link         Link
	LogGroupName string
	Associated   []models.Trail
	Unparseable  []models.Trail

	// Trail-first results, one branch per trail in discovery order.
	Branches []Branch
}

// Resolver walks chains through a Gateway.
type Resolver struct {
	Gateway awsalerting.Gateway
	// MaxConcurrency bounds parallel lookups within one step. Zero means 8.
	MaxConcurrency int
}

// NewResolver returns a Resolver reading from gw.
func NewResolver(gw awsalerting.Gateway) *Resolver {
	return &Resolver{Gateway: gw}
}

// Resolve resolves the chain described by spec.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (*Bundle, error) {
	switch spec.Strategy {
	case models.StrategyFilterFirst:
		return r.filterFirst(ctx, spec)
	case models.StrategyTrailFirst:
		return r.trailFirst(ctx, spec)
	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", spec.Strategy)
	}
}

// filterFirst locates the filter by pattern in any log group, then finds the
// trails whose log group ARN names the filter's log group.
func (r *Resolver) filterFirst(ctx context.Context, spec Spec) (*Bundle, error) {
	filter, err := r.Gateway.FindMetricFilter(ctx, spec.Pattern, "")
	if err != nil {
		return nil, fmt.Errorf("find metric filter: %w", err)
	}
	trails, err := r.Gateway.ListTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}

	b := &Bundle{Spec: spec, Trails: trails}
	if filter != nil {
		b.LogGroupName = filter.LogGroupName
	}
	for _, t := range trails {
		switch {
		case t.LogGroupARN == "":
		case filter != nil && arns.ContainsLogGroup(t.LogGroupARN, filter.LogGroupName):
			b.Associated = append(b.Associated, t)
		default:
			if _, ok := logGroupName(t.LogGroupARN); !ok {
				b.Unparseable = append(b.Unparseable, t)
			}
		}
	}

	if spec.HydrateTrails {
		if b.Associated, err = r.hydrate(ctx, b.Associated); err != nil {
			return nil, err
		}
	}

	if b.Link, err = r.resolveLink(ctx, filter); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("strategy", string(spec.Strategy)).
		Int("trails", len(trails)).
		Int("associated", len(b.Associated)).
		Int("unparseable", len(b.Unparseable)).
		Str("gap", string(b.Link.Gap())).
		Msg("chain resolved")
	return b, nil
}

// trailFirst resolves one branch per trail, each scoped to the trail's own
// log group.
func (r *Resolver) trailFirst(ctx context.Context, spec Spec) (*Bundle, error) {
	trails, err := r.Gateway.ListTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}

	branches := make([]Branch, len(trails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i := range trails {
		i := i
		g.Go(func() error {
			br, err := r.resolveBranch(gctx, spec, trails[i])
			if err != nil {
				return err
			}
			branches[i] = br
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("strategy", string(spec.Strategy)).
		Int("trails", len(trails)).
		Msg("chain resolved")
	return &Bundle{Spec: spec, Trails: trails, Branches: branches}, nil
}

func (r *Resolver) resolveBranch(ctx context.Context, spec Spec, trail models.Trail) (Branch, error) {
	br := Branch{Trail: trail}
	if trail.LogGroupARN == "" {
		br.LogGroupGap = GapNoLogGroup
		return br, nil
	}
	name, ok := logGroupName(trail.LogGroupARN)
	if !ok {
		br.LogGroupGap = GapUnparseable
		return br, nil
	}
	br.LogGroupName = name

	if spec.HydrateTrails {
		full, err := r.Gateway.GetTrail(ctx, trail.ID())
		if err != nil {
			return Branch{}, fmt.Errorf("get trail %q: %w", trail.ID(), err)
		}
		if full != nil {
			br.Trail = *full
		}
	}

	filter, err := r.Gateway.FindMetricFilter(ctx, spec.Pattern, name)
	if err != nil {
		return Branch{}, fmt.Errorf("find metric filter in %q: %w", name, err)
	}
	if br.Link, err = r.resolveLink(ctx, filter); err != nil {
		return Branch{}, err
	}
	return br, nil
}

// resolveLink follows a located filter to its alarm and topics. A missing
// filter or undefined metric stops the walk.
func (r *Resolver) resolveLink(ctx context.Context, filter *models.MetricFilter) (Link, error) {
	link := Link{Filter: filter}
	if filter == nil || !filter.HasMetric() {
		return link, nil
	}

	alarm, err := r.Gateway.FindAlarm(ctx, filter.MetricName, filter.MetricNamespace)
	if err != nil {
		return Link{}, fmt.Errorf("find alarm for %s/%s: %w", filter.MetricNamespace, filter.MetricName, err)
	}
	link.Alarm = alarm
	if alarm == nil {
		return link, nil
	}

	link.Topics = make([]TopicRef, len(alarm.AlarmActions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i, action := range alarm.AlarmActions {
		i, action := i, action
		g.Go(func() error {
			topic, err := r.Gateway.GetTopic(gctx, action)
			if err != nil {
				return fmt.Errorf("get topic %q: %w", action, err)
			}
			link.Topics[i] = TopicRef{ARN: action, Topic: topic}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Link{}, err
	}
	return link, nil
}

// hydrate replaces each listed trail with its fully populated form. A trail
// that disappeared since listing keeps its listed form, which never counts
// as logging.
func (r *Resolver) hydrate(ctx context.Context, trails []models.Trail) ([]models.Trail, error) {
	out := make([]models.Trail, len(trails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i := range trails {
		i := i
		g.Go(func() error {
			full, err := r.Gateway.GetTrail(gctx, trails[i].ID())
			if err != nil {
				return fmt.Errorf("get trail %q: %w", trails[i].ID(), err)
			}
			if full != nil {
				out[i] = *full
			} else {
				out[i] = trails[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// logGroupName returns the log group a trail delivers to. ok is false when
// the ARN is not a logs ARN with a log-group segment.
func logGroupName(logGroupARN string) (string, bool) {
	lg, err := arns.ParseLogGroupARN(logGroupARN)
	if err != nil {
		return "", false
	}
	return lg.Name, true
}

func (r *Resolver) limit() int {
	if r.MaxConcurrency > 0 {
		return r.MaxConcurrency
	}
	return defaultMaxConcurrency
}
