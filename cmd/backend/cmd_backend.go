package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/opsforge/infragen/internal/client"
	"github.com/opsforge/infragen/internal/services/ec2"
	"github.com/opsforge/infragen/internal/services/markdown"
	s3svc "github.com/opsforge/infragen/internal/services/s3"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/utils"
	"github.com/opsforge/infragen/internal/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	region      string
	stateBucket string
	projectName string
)

func NewBackendCmd() *cobra.Command {
	backendCmd := &cobra.Command{
		Use:   "backend",
		Short: "Inspect the Terraform remote state backend",
	}

	backendCmd.AddCommand(newCheckCmd())

	return backendCmd
}

func newCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:           "check",
		Short:         "Check that the state bucket and availability zones are usable",
		Long:          "Probe the S3 state bucket and the region's availability zones in parallel and report anything that would stop terraform init.",
		SilenceErrors: true,
		PreRunE:       preRunCheck,
		RunE:          runCheck,
	}

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&region, "region", types.DefaultRegion, "AWS region")
	optionalFlags.StringVar(&stateBucket, "state-bucket", "", "S3 bucket for Terraform state")
	optionalFlags.StringVar(&projectName, "project-name", "", "Derive the state bucket name from the project when --state-bucket is not set")
	checkCmd.Flags().AddFlagSet(optionalFlags)

	checkCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)
		fmt.Printf("Optional Flags:\n%s\n", optionalFlags.FlagUsages())
		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")
		return nil
	})

	checkCmd.MarkFlagsOneRequired("state-bucket", "project-name")

	return checkCmd
}

func preRunCheck(cmd *cobra.Command, args []string) error {
	return utils.BindEnvToFlags(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := parseCheckOpts()
	if err != nil {
		return fmt.Errorf("failed to parse backend check opts: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s3Client, err := client.NewS3Client(ctx, opts.Region, client.DefaultRequestsPerSecond, client.DefaultBurstSize)
	if err != nil {
		return err
	}
	ec2Client, err := client.NewEC2Client(ctx, opts.Region, client.DefaultRequestsPerSecond, client.DefaultBurstSize)
	if err != nil {
		return err
	}

	checker := NewBackendChecker(*opts, s3svc.NewS3Service(s3Client), ec2.NewEC2Service(ec2Client))
	report, err := checker.Run(ctx)
	if err != nil {
		return err
	}

	if err := buildReport(report).Print(os.Stdout); err != nil {
		return err
	}

	if problems := report.Problems(); len(problems) > 0 {
		return fmt.Errorf("backend is not ready: %s", strings.Join(problems, "; "))
	}

	slog.Info("✅ backend is ready", "bucket", opts.StateBucket, "region", opts.Region)
	return nil
}

func parseCheckOpts() (*BackendCheckerOpts, error) {
	validRegion, err := validation.ValidateAWSRegion(region)
	if err != nil {
		return nil, err
	}

	bucket := stateBucket
	if bucket == "" {
		name, err := validation.ValidateProjectName(projectName)
		if err != nil {
			return nil, err
		}
		gc := types.NewGenerationContext(types.GenerationContextOpts{ProjectName: name, Region: validRegion})
		bucket = gc.Backend().StateBucket
	}

	return &BackendCheckerOpts{
		Region:      validRegion,
		StateBucket: bucket,
	}, nil
}

func buildReport(report *BackendReport) *markdown.Markdown {
	md := markdown.New()
	md.AddHeading("Backend Check", 2)

	rows := [][]string{}
	if report.Bucket != nil {
		rows = append(rows,
			[]string{"State bucket", report.Bucket.Bucket},
			[]string{"Exists", fmt.Sprintf("%t", report.Bucket.Exists)},
			[]string{"Accessible", fmt.Sprintf("%t", report.Bucket.Accessible)},
			[]string{"Bucket region", report.Bucket.Region},
		)
	}
	rows = append(rows, []string{"Availability zones", strings.Join(report.AvailabilityZones, ", ")})
	md.AddTable([]string{"Check", "Result"}, rows)

	if problems := report.Problems(); len(problems) > 0 {
		md.AddHeading("Problems", 3)
		md.AddList(problems)
	}

	return md
}
