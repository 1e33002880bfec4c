package ci

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/opsforge/infragen/internal/types"
)

const (
	githubWorkingDir = "infra/${{ matrix.component }}"
	githubPlanFile   = "tfplan"
	githubArtifact   = "plan-${{ matrix.environment }}-${{ matrix.component }}"
)

func githubWorkflow(gc *types.GenerationContext, components []string) yaml.MapSlice {
	return yaml.MapSlice{
		item("name", "Terraform"),
		item("on", yaml.MapSlice{
			item("push", yaml.MapSlice{item("branches", []string{"main"})}),
			item("pull_request", yaml.MapSlice{item("paths", []string{"infra/**"})}),
			item("workflow_dispatch", yaml.MapSlice{}),
		}),
		item("permissions", yaml.MapSlice{
			item("id-token", "write"),
			item("contents", "read"),
		}),
		item("env", yaml.MapSlice{
			item("TF_IN_AUTOMATION", "true"),
			item("AWS_REGION", gc.Region()),
		}),
		item("jobs", yaml.MapSlice{
			item("plan", yaml.MapSlice{
				item("name", "Plan ${{ matrix.component }} (${{ matrix.environment }})"),
				item("runs-on", "ubuntu-latest"),
				item("strategy", yaml.MapSlice{
					item("fail-fast", false),
					item("matrix", githubMatrix(gc.Environments(), components)),
				}),
				item("defaults", workingDirDefaults()),
				item("steps", append(githubSetupSteps(gc),
					step("Plan", fmt.Sprintf("terraform plan -input=false -var-file=../config/${{ matrix.environment }}.tfvars -out=%s", githubPlanFile)),
					yaml.MapSlice{
						item("uses", "actions/upload-artifact@v4"),
						item("with", yaml.MapSlice{
							item("name", githubArtifact),
							item("path", githubWorkingDir+"/"+githubPlanFile),
						}),
					},
				)),
			}),
			item("apply", yaml.MapSlice{
				item("name", "Apply ${{ matrix.component }} (${{ matrix.environment }})"),
				item("needs", "plan"),
				item("if", "github.ref == 'refs/heads/main' && github.event_name != 'pull_request'"),
				item("runs-on", "ubuntu-latest"),
				item("environment", "${{ matrix.environment }}"),
				item("strategy", yaml.MapSlice{
					item("fail-fast", true),
					item("max-parallel", 1),
					item("matrix", githubMatrix(gc.Environments(), components)),
				}),
				item("defaults", workingDirDefaults()),
				item("steps", append(githubSetupSteps(gc),
					yaml.MapSlice{
						item("uses", "actions/download-artifact@v4"),
						item("with", yaml.MapSlice{
							item("name", githubArtifact),
							item("path", githubWorkingDir),
						}),
					},
					step("Apply", "terraform apply -auto-approve -input=false "+githubPlanFile),
				)),
			}),
		}),
	}
}

// githubMatrix lists every environment/component pair explicitly so that
// with max-parallel 1 components are applied in deployment order.
func githubMatrix(environments, components []string) yaml.MapSlice {
	include := make([]yaml.MapSlice, 0, len(environments)*len(components))
	for _, env := range environments {
		for _, component := range components {
			include = append(include, yaml.MapSlice{
				item("environment", env),
				item("component", component),
			})
		}
	}
	return yaml.MapSlice{item("include", include)}
}

func githubSetupSteps(gc *types.GenerationContext) []any {
	steps := []any{
		yaml.MapSlice{item("uses", "actions/checkout@v4")},
		yaml.MapSlice{
			item("uses", "hashicorp/setup-terraform@v3"),
			item("with", yaml.MapSlice{item("terraform_version", TerraformVersion)}),
		},
	}

	if roleARN := gc.TerraformRoleARN(); roleARN != "" {
		steps = append(steps, yaml.MapSlice{
			item("uses", "aws-actions/configure-aws-credentials@v4"),
			item("with", yaml.MapSlice{
				item("role-to-assume", roleARN),
				item("aws-region", gc.Region()),
			}),
		})
	}

	return append(steps,
		step("Init", `terraform init -input=false -backend-config=../config/backend.hcl -backend-config="key=${{ matrix.environment }}/${{ matrix.component }}/tf.state"`),
		step("Validate", "terraform validate"),
	)
}

func step(name, run string) yaml.MapSlice {
	return yaml.MapSlice{item("name", name), item("run", run)}
}

func workingDirDefaults() yaml.MapSlice {
	return yaml.MapSlice{
		item("run", yaml.MapSlice{item("working-directory", githubWorkingDir)}),
	}
}
