package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsforge/infragen/internal/client"
	"github.com/opsforge/infragen/internal/config"
	"github.com/opsforge/infragen/internal/generators/infra"
	ec2svc "github.com/opsforge/infragen/internal/services/ec2"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	projectName       string
	components        string
	environments      string
	region            string
	awsAccountID      string
	outputDir         string
	templateDir       string
	sourceDir         string
	modulesDir        string
	stateBucket       string
	dynamoDBTable     string
	useAssumeRole     bool
	ciProvider        string
	availabilityZones string
	discoverAZs       bool
	configFile        string

	fileConfig *config.Config
)

func NewGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:           "generate",
		Short:         "Generate a Terraform infrastructure tree",
		Long:          "Resolve the requested components and their dependencies, then render each component together with the CI pipeline, config scaffold and README into the output directory.",
		Example:       "  infragen generate --project-name demo --components eks-auto --environments dev,prod",
		SilenceErrors: true,
		PreRunE:       preRunGenerate,
		RunE:          runGenerate,
	}

	groups := map[*pflag.FlagSet]string{}

	// Required flags.
	requiredFlags := pflag.NewFlagSet("required", pflag.ExitOnError)
	requiredFlags.SortFlags = false
	requiredFlags.StringVar(&projectName, "project-name", "", "Project name (3-31 chars, lowercase letters, digits and hyphens)")
	requiredFlags.StringVar(&components, "components", "", "Comma separated list of components to generate (e.g. vpc,eks-auto)")
	generateCmd.Flags().AddFlagSet(requiredFlags)
	groups[requiredFlags] = "Required Flags"

	// Optional flags.
	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&environments, "environments", "dev,uat,prod", "Comma separated list of environments")
	optionalFlags.StringVar(&region, "region", types.DefaultRegion, "AWS region")
	optionalFlags.StringVar(&awsAccountID, "aws-account-id", "", "AWS account id used for the Terraform role")
	optionalFlags.StringVar(&outputDir, "output-dir", "generated-infra", "Output directory")
	optionalFlags.StringVar(&templateDir, "template-dir", "template-modules", "Directory holding one template bundle per component")
	optionalFlags.StringVar(&sourceDir, "source-dir", "infra", "Directory copied from when a component has no template bundle")
	optionalFlags.StringVar(&modulesDir, "modules-dir", "modules", "Local Terraform modules copied for components that need them")
	optionalFlags.StringVar(&stateBucket, "state-bucket", "", "S3 bucket for Terraform state (default tf-state-<region>-<project>)")
	optionalFlags.StringVar(&dynamoDBTable, "dynamodb-table", "", "DynamoDB table for state locking (default tf-lock-<region>-<project>)")
	optionalFlags.BoolVar(&useAssumeRole, "use-assume-role", true, "Assume the terraform IAM role in the backend and CI")
	optionalFlags.StringVar(&ciProvider, "ci-provider", string(types.CIProviderGitLab), "CI provider (gitlab, github)")
	optionalFlags.StringVar(&availabilityZones, "availability-zones", "", "Comma separated list of availability zones passed to templates")
	optionalFlags.BoolVar(&discoverAZs, "discover-azs", false, "Look up the region's availability zones with EC2 when none are given")
	optionalFlags.StringVar(&configFile, "config", "", "JSON or YAML file with additional settings")
	generateCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	generateCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)

		flagOrder := []*pflag.FlagSet{requiredFlags, optionalFlags}
		groupNames := []string{"Required Flags", "Optional Flags"}

		for i, fs := range flagOrder {
			usage := fs.FlagUsages()
			if usage != "" {
				fmt.Printf("%s:\n", groupNames[i])
				fmt.Printf("%s\n", usage)
			}
		}

		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")
		fmt.Println("Values from --config apply to flags not set on the command line or in the environment.")

		return nil
	})

	generateCmd.MarkFlagRequired("project-name")
	generateCmd.MarkFlagRequired("components")

	return generateCmd
}

// flags > environment > config file > defaults
func preRunGenerate(cmd *cobra.Command, args []string) error {
	if err := utils.BindEnvToFlags(cmd); err != nil {
		return err
	}

	fileConfig = nil
	if configFile == "" {
		return nil
	}

	cfg, err := config.Load(nil, configFile)
	if err != nil {
		return err
	}
	if err := cfg.ApplyToFlags(cmd.Flags()); err != nil {
		return err
	}
	fileConfig = cfg

	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	opts, err := parseGenerateOpts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to parse generate opts: %w", err)
	}

	generator := infra.NewInfraGenerator(*opts)
	if err := generator.Run(contextOrBackground(cmd.Context())); err != nil {
		return fmt.Errorf("failed to generate infrastructure: %w", err)
	}

	printSummary(generator.Manifest(), opts.OutputDir)

	return nil
}

func parseGenerateOpts(ctx context.Context) (*infra.InfraGeneratorOpts, error) {
	opts := infra.InfraGeneratorOpts{
		ProjectName:       projectName,
		Components:        utils.SplitCSV(components),
		Environments:      utils.SplitCSV(environments),
		Region:            region,
		AWSAccountID:      awsAccountID,
		StateBucket:       stateBucket,
		DynamoDBTable:     dynamoDBTable,
		UseAssumeRole:     useAssumeRole,
		CIProvider:        ciProvider,
		AvailabilityZones: utils.SplitCSV(availabilityZones),
		OutputDir:         outputDir,
		TemplateDir:       templateDir,
		SourceDir:         sourceDir,
		ModulesDir:        modulesDir,
	}

	if fileConfig != nil {
		opts.Extra = fileConfig.Extra
	}

	if discoverAZs && len(opts.AvailabilityZones) == 0 {
		zones, err := discoverAvailabilityZones(contextOrBackground(ctx), region)
		if err != nil {
			return nil, err
		}
		opts.AvailabilityZones = zones
	}

	return &opts, nil
}

func discoverAvailabilityZones(ctx context.Context, region string) ([]string, error) {
	slog.Info("🌍 discovering availability zones", "region", region)

	ec2Client, err := client.NewEC2Client(ctx, region, client.DefaultRequestsPerSecond, client.DefaultBurstSize)
	if err != nil {
		return nil, err
	}

	zones, err := ec2svc.NewEC2Service(ec2Client).AvailabilityZones(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("✅ discovered availability zones", "region", region, "zones", zones)
	return zones, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
