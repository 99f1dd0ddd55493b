package awsalerting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// Snapshot is a recorded set of alerting-chain resources for one region.
type Snapshot struct {
	Region        string                     `json:"region,omitempty"`
	Trails        []models.Trail             `json:"trails"`
	MetricFilters []models.MetricFilter      `json:"metric_filters"`
	Alarms        []models.Alarm             `json:"alarms"`
	Topics        []models.NotificationTopic `json:"topics"`
}

// LoadSnapshot reads a JSON snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %q: %w", path, err)
	}
	return &s, nil
}

// StaticGateway serves a fixed Snapshot. It backs offline evaluation and
// tests. When Err is set every call fails with it wrapped in
// ErrGatewayUnavailable.
type StaticGateway struct {
	Snapshot Snapshot
	Err      error
}

// NewStaticGateway returns a gateway over s.
func NewStaticGateway(s Snapshot) *StaticGateway {
	return &StaticGateway{Snapshot: s}
}

// ListTrails implements Gateway. Like the SDK gateway it omits logging
// status and event selectors.
func (g *StaticGateway) ListTrails(context.Context) ([]models.Trail, error) {
	if g.Err != nil {
		return nil, unavailable("list trails", g.Err)
	}
	out := make([]models.Trail, 0, len(g.Snapshot.Trails))
	for _, t := range g.Snapshot.Trails {
		t.IsLogging = false
		t.EventSelectors = nil
		out = append(out, t)
	}
	return out, nil
}

// GetTrail implements Gateway.
func (g *StaticGateway) GetTrail(_ context.Context, id string) (*models.Trail, error) {
	if g.Err != nil {
		return nil, unavailable("get trail", g.Err)
	}
	for _, t := range g.Snapshot.Trails {
		if t.ARN == id || t.Name == id {
			t.EventSelectors = append([]models.EventSelector(nil), t.EventSelectors...)
			return &t, nil
		}
	}
	return nil, nil
}

// FindMetricFilter implements Gateway.
func (g *StaticGateway) FindMetricFilter(_ context.Context, pattern, logGroupName string) (*models.MetricFilter, error) {
	if g.Err != nil {
		return nil, unavailable("find metric filter", g.Err)
	}
	for _, f := range g.Snapshot.MetricFilters {
		if f.Pattern != pattern {
			continue
		}
		if logGroupName != "" && f.LogGroupName != logGroupName {
			continue
		}
		return &f, nil
	}
	return nil, nil
}

// FindAlarm implements Gateway.
func (g *StaticGateway) FindAlarm(_ context.Context, metricName, namespace string) (*models.Alarm, error) {
	if g.Err != nil {
		return nil, unavailable("find alarm", g.Err)
	}
	if metricName == "" || namespace == "" {
		return nil, nil
	}
	for _, a := range g.Snapshot.Alarms {
		if a.MetricName == metricName && a.MetricNamespace == namespace {
			a.AlarmActions = append([]string(nil), a.AlarmActions...)
			return &a, nil
		}
	}
	return nil, nil
}

// GetTopic implements Gateway.
func (g *StaticGateway) GetTopic(_ context.Context, arn string) (*models.NotificationTopic, error) {
	if g.Err != nil {
		return nil, unavailable("get topic", g.Err)
	}
	for _, t := range g.Snapshot.Topics {
		if t.ARN == arn {
			return &t, nil
		}
	}
	return nil, nil
}
