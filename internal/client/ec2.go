package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"golang.org/x/time/rate"
)

// RateLimitedEC2Client paces the EC2 calls made during discovery
type RateLimitedEC2Client struct {
	*ec2.Client
	limiter *rate.Limiter
}

func NewEC2Client(ctx context.Context, region string, requestsPerSecond float64, burstSize int) (*RateLimitedEC2Client, error) {
	cfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return &RateLimitedEC2Client{
		Client:  ec2.NewFromConfig(cfg),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}, nil
}

func (c *RateLimitedEC2Client) DescribeAvailabilityZones(ctx context.Context, params *ec2.DescribeAvailabilityZonesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return c.Client.DescribeAvailabilityZones(ctx, params, optFns...)
}
