// Package version carries build metadata injected with ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docbinder/internal/version.Version=v1.2.0"
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the --version line.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return "docbinder " + Version
	}
	return fmt.Sprintf("docbinder %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
