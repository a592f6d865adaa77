// Command morningbrew serves the image generation API.
package main

import (
	"os"

	"github.com/aatumaykin/morningbrew/internal/version"
)

// Build metadata, set with
//
//	go build -ldflags "-X main.Version=1.2.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion string
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit, GoVersion)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
