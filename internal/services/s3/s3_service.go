package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type S3Service struct {
	client S3API
}

func NewS3Service(client S3API) *S3Service {
	return &S3Service{client: client}
}

// BucketStatus is the outcome of probing a Terraform state bucket
type BucketStatus struct {
	Bucket     string
	Exists     bool
	Accessible bool
	Region     string
}

// CheckBucket probes bucket with HeadBucket. A missing or forbidden bucket is
// reported in the status; only unexpected failures are returned as errors.
func (s *S3Service) CheckBucket(ctx context.Context, bucket string) (*BucketStatus, error) {
	status := &BucketStatus{Bucket: bucket}

	output, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		status.Exists = true
		status.Accessible = true
		status.Region = aws.ToString(output.BucketRegion)
		return status, nil
	}

	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return status, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return status, nil
		case "Forbidden", "AccessDenied", "403":
			status.Exists = true
			return status, nil
		}
	}

	return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
}
