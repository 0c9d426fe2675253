package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/reconctl/reconctl/internal/checkpointstore/filestore"
	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/ports"
	"github.com/reconctl/reconctl/internal/resume"
)

func newResumeCmd(logger ports.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resume",
		Short:         "Resume a recon pipeline run from its last checkpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := registerResumeFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !flags.Requested() {
			return cmd.Help()
		}

		rc, err := resolveResumeContext(cmd.Context(), flags, logger)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rc)
	}

	return cmd
}

// resolveResumeContext implements the resume command-line contract
// (spec.md §6): a ResumeContext is returned iff --resume-operation is
// present. --resume-mode "interactive" has no non-interactive
// equivalent and is rejected here; the interactive flow belongs to a
// terminal UI outside this CLI's scope.
func resolveResumeContext(ctx context.Context, flags *resumeFlags, logger ports.Logger) (checkpoint.ResumeContext, error) {
	dir := flags.ConfigPath
	if dir == "" {
		dir = defaultCheckpointDir
	}

	backend := filestore.New(dir)
	manager := resume.NewManager(backend, resume.Config{}.WithDefaults(), resume.WithLogger(logger))

	switch flags.Mode {
	case checkpoint.ModeInteractive:
		return checkpoint.ResumeContext{}, domainerrors.New(
			domainerrors.CodeConfiguration,
			"--resume-mode interactive requires an interactive terminal session, not this CLI",
		)
	case checkpoint.ModeLast:
		ids, err := backend.List(ctx, flags.OperationID)
		if err != nil {
			return checkpoint.ResumeContext{}, err
		}
		if len(ids) == 0 {
			return checkpoint.ResumeContext{}, domainerrors.NewNotFound(
				"no checkpoints found for operation", map[string]interface{}{"operation_id": flags.OperationID},
			)
		}
		return manager.ResumeFrom(ctx, ids[0], checkpoint.ModeLast, "--resume-mode last")
	default: // full, best
		return manager.ResumeAutomatically(ctx, flags.OperationID)
	}
}

const defaultCheckpointDir = ".reconctl/checkpoints"
