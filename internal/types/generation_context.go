package types

import (
	"fmt"
	"maps"
	"slices"
)

const (
	DefaultRegion     = "us-east-1"
	TerraformRoleName = "terraform"
)

// CIProvider selects which pipeline definition is generated.
type CIProvider string

const (
	CIProviderGitLab CIProvider = "gitlab"
	CIProviderGitHub CIProvider = "github"
)

func (p CIProvider) IsValid() bool {
	switch p {
	case CIProviderGitLab, CIProviderGitHub:
		return true
	default:
		return false
	}
}

// AllCIProviders returns all possible CIProvider values as strings
func AllCIProviders() []string {
	return []string{
		string(CIProviderGitLab),
		string(CIProviderGitHub),
	}
}

func ToCIProvider(input string) (CIProvider, error) {
	if input == "" {
		return CIProviderGitLab, nil
	}
	p := CIProvider(input)
	if !p.IsValid() {
		return "", NewValidationError("ci provider", input, "unsupported CI provider", AllCIProviders()...)
	}
	return p, nil
}

// Backend holds the Terraform remote state settings.
type Backend struct {
	StateBucket   string `json:"state_bucket"`
	DynamoDBTable string `json:"dynamodb_table"`
	UseAssumeRole bool   `json:"use_assume_role"`
}

// GenerationContextOpts are the already validated inputs of a generation run.
type GenerationContextOpts struct {
	ProjectName       string
	Environments      []string
	Region            string
	AWSAccountID      string
	Backend           Backend
	CIProvider        CIProvider
	AvailabilityZones []string
	Extra             map[string]any
}

// GenerationContext is the set of naming and configuration values used to
// fill template placeholders. It is immutable once built; accessors return
// copies.
type GenerationContext struct {
	projectName       string
	environments      []string
	region            string
	awsAccountID      string
	backend           Backend
	ciProvider        CIProvider
	availabilityZones []string
	extra             map[string]any
}

func NewGenerationContext(opts GenerationContextOpts) *GenerationContext {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	ciProvider := opts.CIProvider
	if ciProvider == "" {
		ciProvider = CIProviderGitLab
	}

	backend := opts.Backend
	if backend.StateBucket == "" {
		backend.StateBucket = fmt.Sprintf("tf-state-%s-%s", region, opts.ProjectName)
	}
	if backend.DynamoDBTable == "" {
		backend.DynamoDBTable = fmt.Sprintf("tf-lock-%s-%s", region, opts.ProjectName)
	}

	return &GenerationContext{
		projectName:       opts.ProjectName,
		environments:      slices.Clone(opts.Environments),
		region:            region,
		awsAccountID:      opts.AWSAccountID,
		backend:           backend,
		ciProvider:        ciProvider,
		availabilityZones: slices.Clone(opts.AvailabilityZones),
		extra:             maps.Clone(opts.Extra),
	}
}

func (g *GenerationContext) ProjectName() string { return g.projectName }
func (g *GenerationContext) Environments() []string { return slices.Clone(g.environments) }
func (g *GenerationContext) Region() string { return g.region }
func (g *GenerationContext) AWSAccountID() string { return g.awsAccountID }
func (g *GenerationContext) Backend() Backend { return g.backend }
func (g *GenerationContext) CIProvider() CIProvider { return g.ciProvider }
func (g *GenerationContext) AvailabilityZones() []string {
	return slices.Clone(g.availabilityZones)
}

// TerraformRoleARN returns the IAM role Terraform assumes, or "" when
// assume-role is disabled or no account id was given.
func (g *GenerationContext) TerraformRoleARN() string {
	if !g.backend.UseAssumeRole || g.awsAccountID == "" {
		return ""
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", g.awsAccountID, TerraformRoleName)
}

// TemplateData returns a fresh map of template bindings. Extra config keys
// are applied first so that the well-known keys always win.
func (g *GenerationContext) TemplateData() map[string]any {
	data := make(map[string]any, len(g.extra)+10)
	maps.Copy(data, g.extra)

	data["project_name"] = g.projectName
	data["environments"] = slices.Clone(g.environments)
	data["region"] = g.region
	data["aws_account_id"] = g.awsAccountID
	data["state_bucket"] = g.backend.StateBucket
	data["dynamodb_table"] = g.backend.DynamoDBTable
	data["use_assume_role"] = g.backend.UseAssumeRole
	data["terraform_role_arn"] = g.TerraformRoleARN()
	data["ci_provider"] = string(g.ciProvider)
	data["availability_zones"] = slices.Clone(g.availabilityZones)

	return data
}
