package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tvarr/internal/config"
	"github.com/jmylchreest/tvarr/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing bsrecorder configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  bsrecorder config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, /etc/bsrecorder/config.yaml, $HOME/.bsrecorder/config.yaml)
  - Environment variables (BSR_SERVER_PORT, BSR_DATABASE_DSN, etc.)
  - Command-line flags (for some options)

Environment variables use the BSR_ prefix and underscores for nesting.
Example: recorder.poll_interval -> BSR_RECORDER_POLL_INTERVAL`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations for readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading default config: %w", err)
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# bsrecorder Configuration File\n")
	b.WriteString("# =============================\n")
	b.WriteString("#\n")
	b.WriteString("# All values shown below are defaults.\n")
	b.WriteString("# Duration format: 30s, 5m, 1h\n")
	b.WriteString("#\n")
	b.WriteString("# Environment variable overrides use the BSR_ prefix, e.g.\n")
	b.WriteString("#   BSR_SERVER_HOST, BSR_SERVER_PORT\n")
	b.WriteString("#   BSR_DATABASE_DRIVER, BSR_DATABASE_DSN\n")
	b.WriteString("#   BSR_STORAGE_CACHE_ROOT, BSR_STORAGE_OUTPUT_ROOT\n")
	b.WriteString("#   BSR_RECORDER_POLL_INTERVAL, BSR_RECORDER_SEGMENT_CONCURRENCY\n")
	b.WriteString("#   BSR_LOGGING_LEVEL, BSR_LOGGING_FORMAT\n")
	b.WriteString("#\n\n")
	fmt.Print(b.String())
	fmt.Print(string(yamlData))

	return nil
}
