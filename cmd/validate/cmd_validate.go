package validate

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/opsforge/infragen/internal/services/resolver"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/utils"
	"github.com/opsforge/infragen/internal/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	projectName  string
	components   string
	environments string
	region       string
	awsAccountID string
	ciProvider   string
)

// ValidatedInputs is printed after a successful validation
type ValidatedInputs struct {
	ProjectName  string   `yaml:"project_name"`
	Components   []string `yaml:"components"`
	Environments []string `yaml:"environments"`
	Region       string   `yaml:"region"`
	AWSAccountID string   `yaml:"aws_account_id,omitempty"`
	CIProvider   string   `yaml:"ci_provider"`
	Order        []string `yaml:"deployment_order"`
	Forfeited    []string `yaml:"forfeited,omitempty"`
}

func NewValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:           "validate",
		Short:         "Validate generation inputs without writing anything",
		Long:          "Validate the project name, components, environments, region, account id and CI provider, then print the normalized inputs and the deployment order.",
		SilenceErrors: true,
		PreRunE:       preRunValidate,
		RunE:          runValidate,
	}

	groups := map[*pflag.FlagSet]string{}

	requiredFlags := pflag.NewFlagSet("required", pflag.ExitOnError)
	requiredFlags.SortFlags = false
	requiredFlags.StringVar(&projectName, "project-name", "", "Project name")
	requiredFlags.StringVar(&components, "components", "", "Comma separated list of components")
	validateCmd.Flags().AddFlagSet(requiredFlags)
	groups[requiredFlags] = "Required Flags"

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&environments, "environments", "dev,uat,prod", "Comma separated list of environments")
	optionalFlags.StringVar(&region, "region", types.DefaultRegion, "AWS region")
	optionalFlags.StringVar(&awsAccountID, "aws-account-id", "", "AWS account id")
	optionalFlags.StringVar(&ciProvider, "ci-provider", string(types.CIProviderGitLab), "CI provider (gitlab, github)")
	validateCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	validateCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)

		flagOrder := []*pflag.FlagSet{requiredFlags, optionalFlags}
		for _, fs := range flagOrder {
			usage := fs.FlagUsages()
			if usage != "" {
				fmt.Printf("%s:\n", groups[fs])
				fmt.Printf("%s\n", usage)
			}
		}

		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")

		return nil
	})

	validateCmd.MarkFlagRequired("project-name")
	validateCmd.MarkFlagRequired("components")

	return validateCmd
}

func preRunValidate(cmd *cobra.Command, args []string) error {
	return utils.BindEnvToFlags(cmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	return validateInputs(os.Stdout, validation.Inputs{
		ProjectName:  projectName,
		Components:   utils.SplitCSV(components),
		Environments: utils.SplitCSV(environments),
		Region:       region,
		AWSAccountID: awsAccountID,
	}, ciProvider)
}

func validateInputs(w io.Writer, in validation.Inputs, provider string) error {
	inputs, err := validation.ValidateAll(in)
	if err != nil {
		return err
	}

	ci, err := types.ToCIProvider(provider)
	if err != nil {
		return err
	}

	resolution, err := resolver.NewResolver(types.DefaultRegistry()).Resolve(inputs.Components)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(ValidatedInputs{
		ProjectName:  inputs.ProjectName,
		Components:   inputs.Components,
		Environments: inputs.Environments,
		Region:       inputs.Region,
		AWSAccountID: inputs.AWSAccountID,
		CIProvider:   string(ci),
		Order:        resolution.Order,
		Forfeited:    resolution.Forfeited,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal validated inputs: %w", err)
	}

	slog.Info("✅ inputs are valid", "project", inputs.ProjectName)
	_, err = w.Write(out)
	return err
}
