package awsalerting

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/pankaj-dahiya-devops/alertchain/internal/models"
)

// describeTrails calls DescribeTrails with shadow trails included, so that a
// multi-region trail homed in another region is visible here too. Trails are
// deduplicated by ARN, keeping discovery order. names restricts the lookup.
func describeTrails(ctx context.Context, client cloudTrailAPIClient, names []string) ([]models.Trail, error) {
	out, err := client.DescribeTrails(ctx, &cloudtrailsvc.DescribeTrailsInput{
		IncludeShadowTrails: aws.Bool(true),
		TrailNameList:       names,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(out.TrailList))
	trails := make([]models.Trail, 0, len(out.TrailList))
	for _, t := range out.TrailList {
		trail := toTrail(t)
		if _, dup := seen[trail.ID()]; dup {
			continue
		}
		seen[trail.ID()] = struct{}{}
		trails = append(trails, trail)
	}
	return trails, nil
}

// toTrail converts an SDK trail to the internal model.
func toTrail(t cttypes.Trail) models.Trail {
	return models.Trail{
		Name:          aws.ToString(t.Name),
		ARN:           aws.ToString(t.TrailARN),
		HomeRegion:    aws.ToString(t.HomeRegion),
		IsMultiRegion: aws.ToBool(t.IsMultiRegionTrail),
		LogGroupARN:   aws.ToString(t.CloudWatchLogsLogGroupArn),
	}
}

// trailIsLogging returns the IsLogging flag from GetTrailStatus. found is
// false when CloudTrail reports the trail as missing.
func trailIsLogging(ctx context.Context, client cloudTrailAPIClient, id string) (logging, found bool, err error) {
	out, err := client.GetTrailStatus(ctx, &cloudtrailsvc.GetTrailStatusInput{Name: aws.String(id)})
	if err != nil {
		if isNotFound(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return aws.ToBool(out.IsLogging), true, nil
}

// trailEventSelectors returns the trail's management event selectors. Basic
// selectors are converted one to one. Advanced selectors count as management
// selectors when they select eventCategory = Management; their readOnly field
// decides the read/write type, and its absence means All.
func trailEventSelectors(ctx context.Context, client cloudTrailAPIClient, id string) ([]models.EventSelector, error) {
	out, err := client.GetEventSelectors(ctx, &cloudtrailsvc.GetEventSelectorsInput{TrailName: aws.String(id)})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var selectors []models.EventSelector
	for _, s := range out.EventSelectors {
		selectors = append(selectors, models.EventSelector{
			IncludeManagementEvents: aws.ToBool(s.IncludeManagementEvents),
			ReadWriteType:           toReadWriteType(s.ReadWriteType),
		})
	}
	for _, s := range out.AdvancedEventSelectors {
		if sel, ok := fromAdvancedSelector(s); ok {
			selectors = append(selectors, sel)
		}
	}
	return selectors, nil
}

// toReadWriteType maps the SDK enum; CloudTrail's default is All.
func toReadWriteType(rw cttypes.ReadWriteType) models.ReadWriteType {
	switch rw {
	case cttypes.ReadWriteTypeReadOnly:
		return models.ReadWriteReadOnly
	case cttypes.ReadWriteTypeWriteOnly:
		return models.ReadWriteWriteOnly
	default:
		return models.ReadWriteAll
	}
}

func fromAdvancedSelector(s cttypes.AdvancedEventSelector) (models.EventSelector, bool) {
	management := false
	rw := models.ReadWriteAll
	for _, f := range s.FieldSelectors {
		switch aws.ToString(f.Field) {
		case "eventCategory":
			management = slices.Contains(f.Equals, "Management")
		case "readOnly":
			switch {
			case slices.Contains(f.Equals, "true"):
				rw = models.ReadWriteReadOnly
			case slices.Contains(f.Equals, "false"):
				rw = models.ReadWriteWriteOnly
			}
		}
	}
	if !management {
		return models.EventSelector{}, false
	}
	return models.EventSelector{IncludeManagementEvents: true, ReadWriteType: rw}, true
}
