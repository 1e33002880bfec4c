package markdown

import (
	"fmt"
	"strings"

	"github.com/opsforge/infragen/internal/types"
)

// BuildProjectReadme documents the generated tree: components, environments
// and the order in which they must be applied.
func BuildProjectReadme(gc *types.GenerationContext, components []string) *Markdown {
	backend := gc.Backend()

	md := New()
	md.AddHeading(gc.ProjectName()+" Infrastructure", 1)
	md.AddParagraph("Generated Terraform infrastructure using infragen.")

	md.AddHeading("Components", 2)
	md.AddList(components)

	md.AddHeading("Environments", 2)
	md.AddList(gc.Environments())

	md.AddHeading("Prerequisites", 2)
	md.AddList([]string{
		"Terraform >= 1.2.0",
		"AWS CLI configured",
		ciProviderLabel(gc.CIProvider()) + " (optional)",
	})

	tree := []string{"infra/"}
	for _, c := range components {
		tree = append(tree, fmt.Sprintf("  %s/", c))
	}
	tree = append(tree, "  config/  # Environment-specific .tfvars files (gitignored)")

	md.AddHeading("Directory Structure", 2)
	md.AddCodeBlock(strings.Join(tree, "\n"), "")

	md.AddHeading("Usage", 2)
	md.AddHeading("1. Configure Environment Variables", 3)
	md.AddParagraph("Create `.tfvars` files in `infra/config/`:")
	md.AddCodeBlock("cp infra/config/sample.tfvars.example infra/config/dev.tfvars\n# Edit dev.tfvars with your values", "bash")
	md.AddHeading("2. Initialize Terraform", 3)
	md.AddCodeBlock("cd infra/<component>\nterraform init -backend-config=../config/backend.hcl -backend-config=\"key=${ENV}/<component>/tf.state\"", "bash")
	md.AddHeading("3. Plan Changes", 3)
	md.AddCodeBlock("terraform plan -var-file=../config/${ENV}.tfvars", "bash")
	md.AddHeading("4. Apply Changes", 3)
	md.AddCodeBlock("terraform apply -var-file=../config/${ENV}.tfvars", "bash")

	md.AddHeading("Deployment Order", 2)
	md.AddParagraph("Components must be deployed in this order due to dependencies:")
	md.AddOrderedList(components)

	md.AddHeading(ciProviderLabel(gc.CIProvider()), 2)
	switch gc.CIProvider() {
	case types.CIProviderGitHub:
		md.AddParagraph("The repository includes a `.github/workflows/terraform.yml` workflow that automates:")
		md.AddList([]string{
			"**Plan**: Runs on pull requests and pushes to main",
			"**Apply**: Runs on main, one component at a time, gated by GitHub environments",
		})
	default:
		md.AddParagraph("The repository includes a `.gitlab-ci.yml` file that automates:")
		md.AddList([]string{
			"**Plan**: Runs automatically on non-main branch pushes",
			"**Apply**: Manual approval required on main branch",
		})
	}

	md.AddHeading("Configuration", 2)
	md.AddParagraph("Key configuration values:")
	md.AddList([]string{
		fmt.Sprintf("**State Bucket**: `%s`", backend.StateBucket),
		fmt.Sprintf("**DynamoDB Table**: `%s`", backend.DynamoDBTable),
		fmt.Sprintf("**Region**: `%s`", gc.Region()),
	})

	return md
}

// BuildConfigReadme explains the contents of infra/config.
func BuildConfigReadme(gc *types.GenerationContext) *Markdown {
	files := make([]string, 0, len(gc.Environments()))
	for _, env := range gc.Environments() {
		files = append(files, fmt.Sprintf("`%s.tfvars`", env))
	}

	example := fmt.Sprintf("env     = %q\naccount = %q\nregion  = %q", firstOr(gc.Environments(), "dev"), "111122223333", gc.Region())

	md := New()
	md.AddHeading("Configuration Files", 1)
	md.AddParagraph("This directory should contain environment-specific `.tfvars` files:")
	md.AddList(files)
	md.AddParagraph("These files are gitignored and should contain sensitive configuration values.")
	md.AddParagraph("`backend.hcl` holds the shared S3 backend settings and is passed to `terraform init`.")
	md.AddHeading("Example", 2)
	md.AddCodeBlock(example, "hcl")

	return md
}

func ciProviderLabel(provider types.CIProvider) string {
	if provider == types.CIProviderGitHub {
		return "GitHub Actions"
	}
	return "GitLab CI/CD"
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
