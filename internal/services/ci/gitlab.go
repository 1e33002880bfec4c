package ci

import (
	"github.com/goccy/go-yaml"
	"github.com/opsforge/infragen/internal/types"
)

const (
	gitlabPlanCommand  = "terraform plan -var-file=../config/${ENV}.tfvars -out=${TF_ROOT}-${ENV}-${PLAN}"
	gitlabApplyCommand = "terraform apply -auto-approve -input=false ${TF_ROOT}-${ENV}-${PLAN}"
	onDefaultBranch    = "$CI_COMMIT_REF_NAME == $CI_DEFAULT_BRANCH"
	onFeatureBranch    = `$CI_COMMIT_REF_NAME != $CI_DEFAULT_BRANCH && $CI_PIPELINE_SOURCE == "push"`
)

func gitlabPipeline(gc *types.GenerationContext, components []string) yaml.MapSlice {
	environments := gc.Environments()

	doc := yaml.MapSlice{
		item("stages", []string{"Init", "Plan", "Apply"}),
		item("image", yaml.MapSlice{
			item("name", "hashicorp/terraform:"+TerraformVersion),
			item("entrypoint", []string{""}),
		}),
		item("variables", yaml.MapSlice{
			item("PLAN", "plan.cache"),
			item("AWS_DEFAULT_REGION", gc.Region()),
		}),
		item("cache", yaml.MapSlice{
			item("key", "$TF_ROOT-$ENV"),
			item("paths", []string{"infra/${TF_ROOT}/.terraform/"}),
		}),
		item(".terraform_init", yaml.MapSlice{
			item("before_script", []string{
				"cd infra/${TF_ROOT}",
				"cat <<EOF > ~/.terraformrc\ncredentials \"gitlab.com\" {\n  token = \"${CI_JOB_TOKEN}\"\n}\nEOF",
				`terraform init -backend-config=../config/backend.hcl -backend-config="key=${ENV}/${TF_ROOT}/tf.state"`,
				"terraform validate",
			}),
		}),
	}

	for _, component := range components {
		doc = append(doc, item("Terraform_Plan_"+component, yaml.MapSlice{
			item("stage", "Plan"),
			item("extends", ".terraform_init"),
			item("script", []string{gitlabPlanCommand}),
			item("parallel", gitlabMatrix(environments, []string{component})),
			item("rules", []yaml.MapSlice{{
				item("if", onFeatureBranch),
				item("changes", yaml.MapSlice{
					item("paths", []string{"infra/" + component + "/**/*"}),
					item("compare_to", "refs/heads/main"),
				}),
				item("when", "always"),
			}}),
		}))
	}

	artifacts := []string{"infra/${TF_ROOT}/${TF_ROOT}-${ENV}-${PLAN}", "infra/${TF_ROOT}/*.zip"}

	doc = append(doc,
		item("Terraform_Plan", yaml.MapSlice{
			item("stage", "Plan"),
			item("extends", ".terraform_init"),
			item("when", "manual"),
			item("script", []string{gitlabPlanCommand}),
			item("artifacts", yaml.MapSlice{
				item("paths", artifacts),
				item("expire_in", "2 hrs"),
			}),
			item("parallel", gitlabMatrix(environments, components)),
			item("rules", []yaml.MapSlice{{item("if", onDefaultBranch)}}),
		}),
		item("Terraform_Apply", yaml.MapSlice{
			item("stage", "Apply"),
			item("extends", ".terraform_init"),
			item("when", "manual"),
			item("script", []string{gitlabApplyCommand}),
			item("artifacts", yaml.MapSlice{
				item("paths", artifacts),
			}),
			item("parallel", gitlabMatrix(environments, components)),
			item("rules", []yaml.MapSlice{{item("if", onDefaultBranch)}}),
		}),
	)

	return doc
}

func gitlabMatrix(environments, roots []string) yaml.MapSlice {
	return yaml.MapSlice{
		item("matrix", []yaml.MapSlice{{
			item("ENV", environments),
			item("TF_ROOT", roots),
		}}),
	}
}
