package backend

import (
	"context"
	"fmt"
	"log/slog"

	s3svc "github.com/opsforge/infragen/internal/services/s3"
	"golang.org/x/sync/errgroup"
)

type BucketChecker interface {
	CheckBucket(ctx context.Context, bucket string) (*s3svc.BucketStatus, error)
}

type ZoneLister interface {
	AvailabilityZones(ctx context.Context) ([]string, error)
}

type BackendCheckerOpts struct {
	Region      string
	StateBucket string
}

// BackendReport is the outcome of the backend probes
type BackendReport struct {
	Region            string
	Bucket            *s3svc.BucketStatus
	AvailabilityZones []string
}

// Problems lists every reason the backend is not ready for terraform init
func (r *BackendReport) Problems() []string {
	var problems []string

	switch {
	case r.Bucket == nil:
		problems = append(problems, "state bucket was not checked")
	case !r.Bucket.Exists:
		problems = append(problems, fmt.Sprintf("state bucket %s does not exist", r.Bucket.Bucket))
	case !r.Bucket.Accessible:
		problems = append(problems, fmt.Sprintf("state bucket %s exists but is not accessible with the current credentials", r.Bucket.Bucket))
	case r.Bucket.Region != "" && r.Bucket.Region != r.Region:
		problems = append(problems, fmt.Sprintf("state bucket %s is in %s, expected %s", r.Bucket.Bucket, r.Bucket.Region, r.Region))
	}

	if len(r.AvailabilityZones) == 0 {
		problems = append(problems, fmt.Sprintf("no available availability zones found in %s", r.Region))
	}

	return problems
}

type BackendChecker struct {
	opts    BackendCheckerOpts
	buckets BucketChecker
	zones   ZoneLister
}

func NewBackendChecker(opts BackendCheckerOpts, buckets BucketChecker, zones ZoneLister) *BackendChecker {
	return &BackendChecker{
		opts:    opts,
		buckets: buckets,
		zones:   zones,
	}
}

// Run probes the state bucket and the region's availability zones concurrently
func (c *BackendChecker) Run(ctx context.Context) (*BackendReport, error) {
	slog.Info("🏁 checking terraform backend", "bucket", c.opts.StateBucket, "region", c.opts.Region)

	report := &BackendReport{Region: c.opts.Region}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		status, err := c.buckets.CheckBucket(gctx, c.opts.StateBucket)
		if err != nil {
			return err
		}
		report.Bucket = status
		return nil
	})

	g.Go(func() error {
		zones, err := c.zones.AvailabilityZones(gctx)
		if err != nil {
			return err
		}
		report.AvailabilityZones = zones
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to check backend: %w", err)
	}

	return report, nil
}
