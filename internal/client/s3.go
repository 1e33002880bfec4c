package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
)

// RateLimitedS3Client paces the S3 calls made during backend checks
type RateLimitedS3Client struct {
	*s3.Client
	limiter *rate.Limiter
}

func NewS3Client(ctx context.Context, region string, requestsPerSecond float64, burstSize int) (*RateLimitedS3Client, error) {
	cfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return &RateLimitedS3Client{
		Client:  s3.NewFromConfig(cfg),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}, nil
}

func (c *RateLimitedS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return c.Client.HeadBucket(ctx, params, optFns...)
}
