// Command coderag is the CLI façade over the retrieval engine: one
// subcommand per orchestrator operation.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		slog.Error("coderag failed", "error", err)
		os.Exit(1)
	}
}
