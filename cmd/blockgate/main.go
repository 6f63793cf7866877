// Blockgate - encrypted chunked upload engine
package main

import (
	"os"

	"github.com/blockgate/blockgate/internal/cli"
	"github.com/blockgate/blockgate/internal/version"
)

// Version information, set by ldflags during build.
var (
	Version   = "v1.0.0"
	BuildTime = "unknown"
)

func main() {
	// Set version in version package (canonical source for all packages)
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
