package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/morningbrew/internal/version"
)

var versionJSON bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Display the version, build time, git commit and Go version of morningbrew.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Current()
		out := cmd.OutOrStdout()

		if versionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Fprintf(out, "%s - AI generated morning coffee pictures\n", info.Service)
		fmt.Fprintf(out, "Version: %s\n", info.Version)
		fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", info.GitCommit)
		fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
}
