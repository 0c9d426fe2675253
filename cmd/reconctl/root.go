package main

import (
	"github.com/spf13/cobra"

	"github.com/reconctl/reconctl/internal/ports"
)

func newRootCmd(logger ports.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reconctl",
		Short:         "reconctl orchestrates recon-pipeline stages as a DAG of external executables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newResumeCmd(logger))

	return cmd
}
