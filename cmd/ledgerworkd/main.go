// Command ledgerworkd runs the ledgerwork scheduler as a standalone daemon
// with the admin HTTP API and a Prometheus /metrics endpoint.
package main

import (
	"os"

	"github.com/xraph/ledgerwork/cmd/ledgerworkd/cmd"
)

// Version information, set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.SetVersion(version, commit)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
