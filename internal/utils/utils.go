package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// sets flag values from corresponding environment variables if flags weren't explicitly provided
func BindEnvToFlags(cmd *cobra.Command) error {
	v := viper.New()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}

		// e.g., "state-bucket" -> "STATE_BUCKET"
		envVarName := FlagToEnvVar(f.Name)

		if err := v.BindEnv(f.Name, envVarName); err != nil {
			bindErr = fmt.Errorf("failed to bind %s to %s: %w", f.Name, envVarName, err)
			return
		}

		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				bindErr = fmt.Errorf("invalid value in %s: %w", envVarName, err)
			}
		}
	})

	return bindErr
}

func FlagToEnvVar(flagName string) string {
	return strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// SplitCSV splits a comma separated flag value, trimming blanks and dropping empty entries
func SplitCSV(value string) []string {
	items := []string{}
	for item := range strings.SplitSeq(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
