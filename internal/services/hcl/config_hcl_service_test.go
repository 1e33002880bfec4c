package hcl

import (
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/opsforge/infragen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAttributes(t *testing.T, content string) hclsyntax.Attributes {
	t.Helper()

	file, diags := hclsyntax.ParseConfig([]byte(content), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	return file.Body.(*hclsyntax.Body).Attributes
}

func attrString(t *testing.T, attrs hclsyntax.Attributes, name string) string {
	t.Helper()

	attr, ok := attrs[name]
	require.True(t, ok, "missing attribute %s", name)

	value, diags := attr.Expr.Value(nil)
	require.False(t, diags.HasErrors(), diags.Error())

	return value.AsString()
}

func TestConfigHCLService_GenerateSampleTfvars(t *testing.T) {
	tests := []struct {
		name            string
		opts            types.GenerationContextOpts
		expectedAccount string
		expectedRegion  string
		expectAZs       bool
	}{
		{
			name:            "placeholder account",
			opts:            types.GenerationContextOpts{ProjectName: "demo", Region: "eu-west-1"},
			expectedAccount: AccountPlaceholder,
			expectedRegion:  "eu-west-1",
		},
		{
			name:            "account and availability zones",
			opts:            types.GenerationContextOpts{ProjectName: "demo", AWSAccountID: "987654321098", AvailabilityZones: []string{"us-east-1a", "us-east-1b"}},
			expectedAccount: "987654321098",
			expectedRegion:  "us-east-1",
			expectAZs:       true,
		},
	}

	service := NewConfigHCLService()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := service.GenerateSampleTfvars(types.NewGenerationContext(tt.opts))

			assert.Contains(t, content, "# Sample configuration for {{ env }}")
			assert.Contains(t, content, `"{{ env }}"`)
			assert.Contains(t, content, `"`+tt.expectedAccount+`"`)
			assert.Contains(t, content, "# Add additional variables as needed")

			attrs := parseAttributes(t, content)
			assert.Equal(t, EnvPlaceholder, attrString(t, attrs, "env"))
			assert.Equal(t, tt.expectedAccount, attrString(t, attrs, "account"))
			assert.Equal(t, tt.expectedRegion, attrString(t, attrs, "region"))

			if tt.expectAZs {
				assert.Contains(t, attrs, "availability_zones")
				assert.Contains(t, content, `"us-east-1a"`)
			} else {
				assert.NotContains(t, attrs, "availability_zones")
			}
		})
	}
}

func TestConfigHCLService_GenerateBackendConfig(t *testing.T) {
	service := NewConfigHCLService()

	withRole := service.GenerateBackendConfig(types.NewGenerationContext(types.GenerationContextOpts{
		ProjectName:  "demo",
		Region:       "us-west-2",
		AWSAccountID: "987654321098",
		Backend:      types.Backend{UseAssumeRole: true},
	}))

	attrs := parseAttributes(t, withRole)
	assert.Contains(t, attrs, "assume_role")
	assert.Contains(t, withRole, `"tf-state-us-west-2-demo"`)
	assert.Contains(t, withRole, `"tf-lock-us-west-2-demo"`)
	assert.Contains(t, withRole, "encrypt")
	assert.Contains(t, withRole, `"arn:aws:iam::987654321098:role/terraform"`)

	withoutAccount := service.GenerateBackendConfig(types.NewGenerationContext(types.GenerationContextOpts{
		ProjectName: "demo",
		Backend:     types.Backend{StateBucket: "custom-bucket", UseAssumeRole: true},
	}))

	attrs = parseAttributes(t, withoutAccount)
	assert.NotContains(t, attrs, "assume_role")
	assert.Contains(t, withoutAccount, `"custom-bucket"`)
	assert.Contains(t, withoutAccount, `"tf-lock-us-east-1-demo"`)
}

func TestTokensForMap_SortedKeys(t *testing.T) {
	f := hclwrite.NewEmptyFile()
	f.Body().SetAttributeRaw("tags", TokensForMap(map[string]hclwrite.Tokens{
		"Project":   TokensForStringTemplate("demo"),
		"Env":       TokensForStringTemplate("${var.env}"),
		"ManagedBy": TokensForStringTemplate("infragen"),
	}))

	content := string(hclwrite.Format(f.Bytes()))
	parseAttributes(t, content)

	envIdx := strings.Index(content, "Env")
	managedIdx := strings.Index(content, "ManagedBy")
	projectIdx := strings.Index(content, "Project")
	assert.Less(t, envIdx, managedIdx)
	assert.Less(t, managedIdx, projectIdx)
	assert.Contains(t, content, `"${var.env}"`)
}

func TestTokensForStringList(t *testing.T) {
	f := hclwrite.NewEmptyFile()
	f.Body().SetAttributeRaw("empty", TokensForStringList(nil))
	f.Body().SetAttributeRaw("zones", TokensForStringList([]string{"a", "b"}))

	attrs := parseAttributes(t, string(f.Bytes()))
	zones, diags := attrs["zones"].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, 2, zones.LengthInt())

	empty, diags := attrs["empty"].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, 0, empty.LengthInt())
}
