// Command reconctl is the recon-pipeline orchestrator's entry point.
// The bulk of its CLI surface (running pipelines, selecting stages,
// rendering progress) is out of scope for this module; only the
// resume command-line contract (spec.md §6) is specified, and that is
// what this command wires up.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/reconctl/reconctl/internal/logging"
)

func main() {
	appLogger, err := logging.New(logging.Options{
		Level:     "info",
		Component: "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := logging.GenerateCorrelationID()
	ctx := logging.WithCorrelationID(context.Background(), correlationID)

	rootCmd := newRootCmd(appLogger)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
