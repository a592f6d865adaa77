package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/morningbrew/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect morningbrew configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if errs := cfg.Validate(); len(errs) > 0 {
			fmt.Fprintf(out, "Configuration %s is invalid:\n", path)
			for _, e := range errs {
				fmt.Fprintf(out, "  - %v\n", e)
			}
			return fmt.Errorf("config validation failed: %d errors", len(errs))
		}

		fmt.Fprintf(out, "Configuration %s is valid\n", path)
		return nil
	},
}

// configShowCmd prints the effective configuration with secrets masked
var configShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment variables are
applied. Secrets are masked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(args)
		if err != nil {
			return err
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg.Masked())
	},
}

// loadConfig loads .env and the config file named by args, falling back to
// defaults when the file does not exist.
func loadConfig(args []string) (*config.Config, string, error) {
	path := defaultConfigPath
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.LoadEnvOptional(defaultEnvFile); err != nil {
		return nil, path, fmt.Errorf("failed to load %s: %w", defaultEnvFile, err)
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
