// Package version holds the build metadata of the morningbrew binary.
package version

import (
	"fmt"
	"runtime"
)

// Service is the name reported in version output and startup logs.
const Service = "morningbrew"

// Значения подставляются через -ldflags в cmd/morningbrew
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = ""
)

// SetInfo overrides build metadata injected through ldflags; empty values are ignored.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// Info is what `morningbrew version --json` prints.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// Current returns the build metadata. GoVersion falls back to the runtime
// version when the build did not inject one.
func Current() Info {
	gv := GoVersion
	if gv == "" {
		gv = runtime.Version()
	}
	return Info{
		Service:   Service,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: gv,
	}
}

// String renders the info as one line, e.g. "morningbrew 1.2.0 (build ..., commit abc123)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (build %s, commit %s)", i.Service, i.Version, i.BuildTime, i.GitCommit)
}

// FormatStartupMessage returns the line logged when the server starts.
func FormatStartupMessage() string {
	return "Starting " + Current().String()
}
