package ec2

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type EC2API interface {
	DescribeAvailabilityZones(ctx context.Context, params *ec2.DescribeAvailabilityZonesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error)
}

type EC2Service struct {
	client EC2API
}

func NewEC2Service(client EC2API) *EC2Service {
	return &EC2Service{client: client}
}

// AvailabilityZones returns the names of the available standard zones of
// the client's region, sorted. Local and wavelength zones are skipped.
func (e *EC2Service) AvailabilityZones(ctx context.Context) ([]string, error) {
	input := &ec2.DescribeAvailabilityZonesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("state"), Values: []string{string(ec2types.AvailabilityZoneStateAvailable)}},
			{Name: aws.String("zone-type"), Values: []string{"availability-zone"}},
		},
	}

	output, err := e.client.DescribeAvailabilityZones(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to describe availability zones: %w", err)
	}

	zones := make([]string, 0, len(output.AvailabilityZones))
	for _, az := range output.AvailabilityZones {
		if az.State != ec2types.AvailabilityZoneStateAvailable {
			continue
		}
		if name := aws.ToString(az.ZoneName); name != "" {
			zones = append(zones, name)
		}
	}
	slices.Sort(zones)

	slog.Info("🌍 discovered availability zones", "zones", zones)
	return zones, nil
}
