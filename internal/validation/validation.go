// Package validation rejects malformed identifiers before they reach the
// filesystem or the template engine. Every function here is pure: the same
// input always yields the same result or the same error.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/opsforge/infragen/internal/types"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxComponentNameLength = 50
	MaxComponentsCount     = 20
	MaxPathLength          = 4096
	MaxFilenameLength      = 255
	MaxContextStringLength = 10000
)

var (
	projectNamePattern  = regexp.MustCompile(`^[a-z][a-z0-9-]{2,30}$`)
	componentPattern    = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)
	environmentPattern  = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)
	awsAccountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

	reservedProjectNames = []string{"tmp", "temp", "admin", "root", "default"}

	placeholderAccountIDs = []string{"000000000000", "123456789012"}

	allowedRegions = []string{
		"ap-northeast-1",
		"ap-southeast-1",
		"ap-southeast-2",
		"ca-central-1",
		"eu-central-1",
		"eu-west-1",
		"eu-west-2",
		"eu-west-3",
		"sa-east-1",
		"us-east-1",
		"us-east-2",
		"us-west-1",
		"us-west-2",
	}

	// reflection internals of common template engines
	dangerousContextKeys = []string{
		"__builtins__",
		"__globals__",
		"__class__",
		"__subclasses__",
		"__mro__",
		"__init__",
		"__dict__",
	}
)

// AllowedRegions returns the supported AWS region codes, sorted.
func AllowedRegions() []string {
	return slices.Clone(allowedRegions)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(value)))
}

// ValidateProjectName returns the NFKC-normalized, lowercased project name.
func ValidateProjectName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", types.NewValidationError("project name", "", "cannot be empty")
	}

	normalized := normalize(name)

	if !projectNamePattern.MatchString(normalized) {
		return "", types.NewValidationError("project name", name,
			"Must be 3-31 chars, start with letter, and contain only lowercase letters, digits and hyphens")
	}

	if slices.Contains(reservedProjectNames, normalized) {
		return "", types.NewValidationError("project name", name, "name is reserved")
	}

	return normalized, nil
}

func ValidateComponent(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", types.NewValidationError("component", "", "cannot be empty")
	}

	normalized := normalize(name)

	if len(normalized) > MaxComponentNameLength {
		return "", types.NewValidationError("component", name,
			fmt.Sprintf("too long (max %d chars)", MaxComponentNameLength))
	}

	if !componentPattern.MatchString(normalized) {
		return "", types.NewValidationError("component", name, "Must be lowercase alphanumeric with hyphens")
	}

	return normalized, nil
}

func ValidateComponentsList(components []string) ([]string, error) {
	if len(components) == 0 {
		return nil, types.NewValidationError("components", "", "list cannot be empty")
	}

	if len(components) > MaxComponentsCount {
		return nil, types.NewValidationError("components", "",
			fmt.Sprintf("too many components (max %d)", MaxComponentsCount))
	}

	validated := make([]string, 0, len(components))
	for _, c := range components {
		v, err := ValidateComponent(c)
		if err != nil {
			return nil, err
		}
		validated = append(validated, v)
	}

	return validated, nil
}

// ValidateEnvironment checks an environment name against the single
// pattern-based policy. No enumerated allow-list is applied.
func ValidateEnvironment(env string) (string, error) {
	if strings.TrimSpace(env) == "" {
		return "", types.NewValidationError("environment", "", "cannot be empty")
	}

	normalized := normalize(env)

	if !environmentPattern.MatchString(normalized) {
		return "", types.NewValidationError("environment", env, "Must be lowercase alphanumeric with hyphens")
	}

	return normalized, nil
}

// ValidateEnvironments validates every entry and drops duplicates, keeping
// the first occurrence.
func ValidateEnvironments(envs []string) ([]string, error) {
	if len(envs) == 0 {
		return nil, types.NewValidationError("environments", "", "At least one environment is required")
	}

	validated := make([]string, 0, len(envs))
	for _, e := range envs {
		v, err := ValidateEnvironment(e)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validated, v) {
			validated = append(validated, v)
		}
	}

	return validated, nil
}

func ValidateAWSAccountID(accountID string) (string, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return "", types.NewValidationError("aws account id", "", "cannot be empty")
	}

	if !awsAccountIDPattern.MatchString(trimmed) {
		return "", types.NewValidationError("aws account id", accountID, "must be exactly 12 digits")
	}

	if slices.Contains(placeholderAccountIDs, trimmed) {
		return "", types.NewValidationError("aws account id", accountID, "placeholder account ids are not accepted, please provide a real AWS account id")
	}

	return trimmed, nil
}

func ValidateAWSRegion(region string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(region))
	if normalized == "" {
		return "", types.NewValidationError("region", "", "cannot be empty", allowedRegions...)
	}

	if !slices.Contains(allowedRegions, normalized) {
		return "", types.NewValidationError("region", region, "Invalid region", allowedRegions...)
	}

	return normalized, nil
}

// ValidatePath resolves path to an absolute, cleaned path. When baseDir is
// non-empty the result must be a strict descendant of baseDir. Resolution is
// lexical; symlinks are not followed.
func ValidatePath(path, baseDir string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", types.NewSecurityError(path, "path contains null byte")
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", types.NewSecurityError(path, fmt.Sprintf("invalid path: %v", err))
	}

	if len(resolved) > MaxPathLength {
		return "", types.NewSecurityError(path, fmt.Sprintf("path too long (max %d chars)", MaxPathLength))
	}

	if baseDir == "" {
		return resolved, nil
	}

	if strings.ContainsRune(baseDir, 0) {
		return "", types.NewSecurityError(baseDir, "base directory contains null byte")
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", types.NewSecurityError(baseDir, fmt.Sprintf("invalid base directory: %v", err))
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", types.NewSecurityError(path, fmt.Sprintf("path is outside allowed directory %s", baseDir))
	}

	return resolved, nil
}

// ContainsPath reports whether child is parent itself or lies beneath it.
// Both paths are made absolute and compared lexically.
func ContainsPath(parent, child string) (bool, error) {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", parent, err)
	}
	absChild, err := filepath.Abs(child)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", child, err)
	}

	rel, err := filepath.Rel(absParent, absChild)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

func ValidateFilename(name string) (string, error) {
	if name == "" {
		return "", types.NewSecurityError(name, "filename cannot be empty")
	}

	if name == "." || name == ".." {
		return "", types.NewSecurityError(name, "filename cannot be a directory reference")
	}

	if strings.ContainsAny(name, `/\`) {
		return "", types.NewSecurityError(name, "filename cannot contain path separators")
	}

	if strings.ContainsRune(name, 0) {
		return "", types.NewSecurityError(name, "filename contains null byte")
	}

	for _, r := range name {
		if r < 32 {
			return "", types.NewSecurityError(name, "filename contains control characters")
		}
	}

	if len(name) > MaxFilenameLength {
		return "", types.NewSecurityError(name, fmt.Sprintf("filename too long (max %d chars)", MaxFilenameLength))
	}

	return name, nil
}

// SanitizeTemplateContext returns a copy of ctx safe to hand to a template
// engine. Keys beginning with an underscore are dropped at every level.
func SanitizeTemplateContext(ctx map[string]any) map[string]any {
	sanitized := make(map[string]any, len(ctx))

	for key, value := range ctx {
		if strings.HasPrefix(key, "_") || slices.Contains(dangerousContextKeys, key) {
			continue
		}

		switch v := value.(type) {
		case string:
			sanitized[key] = sanitizeString(v)
		case map[string]any:
			sanitized[key] = SanitizeTemplateContext(v)
		case []string:
			cleaned := make([]string, len(v))
			for i, s := range v {
				cleaned[i] = strings.ReplaceAll(s, "\x00", "")
			}
			sanitized[key] = cleaned
		case []any:
			cleaned := make([]any, len(v))
			for i, item := range v {
				if s, ok := item.(string); ok {
					cleaned[i] = strings.ReplaceAll(s, "\x00", "")
				} else {
					cleaned[i] = item
				}
			}
			sanitized[key] = cleaned
		default:
			sanitized[key] = value
		}
	}

	return sanitized
}

func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if utf8.RuneCountInString(s) > MaxContextStringLength {
		s = string([]rune(s)[:MaxContextStringLength])
	}
	return s
}

// Inputs groups every user supplied value of a generation run.
type Inputs struct {
	ProjectName  string
	Components   []string
	Environments []string
	Region       string
	AWSAccountID string
}

// ValidateAll validates every field and returns the normalized inputs. The
// account id is optional; it is only checked when provided.
func ValidateAll(in Inputs) (*Inputs, error) {
	projectName, err := ValidateProjectName(in.ProjectName)
	if err != nil {
		return nil, err
	}

	components, err := ValidateComponentsList(in.Components)
	if err != nil {
		return nil, err
	}

	environments, err := ValidateEnvironments(in.Environments)
	if err != nil {
		return nil, err
	}

	region, err := ValidateAWSRegion(in.Region)
	if err != nil {
		return nil, err
	}

	accountID := ""
	if strings.TrimSpace(in.AWSAccountID) != "" {
		accountID, err = ValidateAWSAccountID(in.AWSAccountID)
		if err != nil {
			return nil, err
		}
	}

	return &Inputs{
		ProjectName:  projectName,
		Components:   components,
		Environments: environments,
		Region:       region,
		AWSAccountID: accountID,
	}, nil
}
