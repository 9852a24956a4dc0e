// Command robocurse is the process entry point: it parses the CLI
// surface, wires configuration loading and the Orchestrator, and returns
// the process exit code.
package main

import (
	"os"

	"github.com/robocurse/robocurse/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
