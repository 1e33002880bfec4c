package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the file overlay for the generate command. Keys match the
// generate flags with underscores in place of hyphens.
type Config struct {
	ProjectName       string   `mapstructure:"project_name"`
	Components        []string `mapstructure:"components"`
	Environments      []string `mapstructure:"environments"`
	Region            string   `mapstructure:"region"`
	AWSAccountID      string   `mapstructure:"aws_account_id"`
	OutputDir         string   `mapstructure:"output_dir"`
	TemplateDir       string   `mapstructure:"template_dir"`
	SourceDir         string   `mapstructure:"source_dir"`
	ModulesDir        string   `mapstructure:"modules_dir"`
	StateBucket       string   `mapstructure:"state_bucket"`
	DynamoDBTable     string   `mapstructure:"dynamodb_table"`
	UseAssumeRole     bool     `mapstructure:"use_assume_role"`
	CIProvider        string   `mapstructure:"ci_provider"`
	DiscoverAZs       bool     `mapstructure:"discover_azs"`
	AvailabilityZones []string `mapstructure:"availability_zones"`

	// Extra holds every key not listed above, passed to templates as-is
	Extra map[string]any `mapstructure:"-"`

	v *viper.Viper
}

var knownKeys = []string{
	"project_name",
	"components",
	"environments",
	"region",
	"aws_account_id",
	"output_dir",
	"template_dir",
	"source_dir",
	"modules_dir",
	"state_bucket",
	"dynamodb_table",
	"use_assume_role",
	"ci_provider",
	"discover_azs",
	"availability_zones",
}

var supportedExtensions = []string{".json", ".yaml", ".yml"}

// Load reads a JSON or YAML config file from fs
func Load(fs afero.Fs, path string) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(supportedExtensions, ext) {
		return nil, fmt.Errorf("unsupported config file extension '%s': expected one of %s", ext, strings.Join(supportedExtensions, ", "))
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.Extra = map[string]any{}
	for key, value := range v.AllSettings() {
		if !slices.Contains(knownKeys, key) {
			cfg.Extra[key] = value
		}
	}

	slog.Info("📋 loaded config file", "path", path, "extraKeys", len(cfg.Extra))
	return cfg, nil
}

// IsSet reports whether key was present in the file
func (c *Config) IsSet(key string) bool {
	return c.v != nil && c.v.IsSet(key)
}

// ApplyToFlags copies file values onto flags that were not set on the command
// line or from the environment. Keys without a matching flag are ignored.
func (c *Config) ApplyToFlags(flags *pflag.FlagSet) error {
	for _, key := range knownKeys {
		if !c.IsSet(key) {
			continue
		}

		flagName := strings.ReplaceAll(key, "_", "-")
		flag := flags.Lookup(flagName)
		if flag == nil || flag.Changed {
			continue
		}

		if err := flags.Set(flagName, flagValue(c.v.Get(key))); err != nil {
			return fmt.Errorf("invalid value for '%s' in config file: %w", key, err)
		}
	}

	return nil
}

func flagValue(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ",")
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(items, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
