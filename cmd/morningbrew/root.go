package main

import (
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "./config.toml"
	defaultEnvFile    = "./.env"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "morningbrew",
	Short: "morningbrew - AI generated morning coffee pictures",
	Long: `morningbrew asks a language model to compose a picture of your morning
coffee. The model may look up the weather, a joke or the latest posts before
it draws, and the result is streamed to the browser over Server-Sent Events.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}
