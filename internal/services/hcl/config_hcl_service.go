package hcl

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/opsforge/infragen/internal/types"
	"github.com/zclconf/go-cty/cty"
)

const (
	EnvPlaceholder     = "{{ env }}"
	AccountPlaceholder = "YOUR_AWS_ACCOUNT_ID"
)

// ConfigHCLService builds the files of the infra/config scaffold.
type ConfigHCLService struct{}

func NewConfigHCLService() *ConfigHCLService {
	return &ConfigHCLService{}
}

// GenerateSampleTfvars returns the sample.tfvars.example content. The env
// value is left as a placeholder to be filled in per environment.
func (s *ConfigHCLService) GenerateSampleTfvars(gc *types.GenerationContext) string {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.AppendUnstructuredTokens(TokensForComment("Sample configuration for " + EnvPlaceholder))
	body.SetAttributeValue("env", cty.StringVal(EnvPlaceholder))

	account := gc.AWSAccountID()
	if account == "" {
		account = AccountPlaceholder
	}
	body.SetAttributeValue("account", cty.StringVal(account))
	body.SetAttributeValue("region", cty.StringVal(gc.Region()))

	if azs := gc.AvailabilityZones(); len(azs) > 0 {
		body.SetAttributeRaw("availability_zones", TokensForStringList(azs))
	}

	body.AppendNewline()
	body.AppendUnstructuredTokens(TokensForComment("Add additional variables as needed"))

	return string(hclwrite.Format(f.Bytes()))
}

// GenerateBackendConfig returns a partial S3 backend configuration for
// `terraform init -backend-config=../config/backend.hcl`.
func (s *ConfigHCLService) GenerateBackendConfig(gc *types.GenerationContext) string {
	backend := gc.Backend()

	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.AppendUnstructuredTokens(TokensForComment("S3 remote state for " + gc.ProjectName()))
	body.SetAttributeValue("bucket", cty.StringVal(backend.StateBucket))
	body.SetAttributeValue("dynamodb_table", cty.StringVal(backend.DynamoDBTable))
	body.SetAttributeValue("region", cty.StringVal(gc.Region()))
	body.SetAttributeValue("encrypt", cty.True)

	if roleARN := gc.TerraformRoleARN(); roleARN != "" {
		body.SetAttributeRaw("assume_role", TokensForMap(map[string]hclwrite.Tokens{
			"role_arn":     TokensForStringTemplate(roleARN),
			"session_name": TokensForStringTemplate(gc.ProjectName() + "-terraform"),
		}))
	}

	return string(hclwrite.Format(f.Bytes()))
}
