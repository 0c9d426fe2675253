package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
)

// resumeModeValue adapts checkpoint.Mode to pflag.Value so --resume-mode
// is restricted to the four modes the resume command-line contract
// names (spec.md §6), with a clear error for anything else instead of
// cobra's generic "invalid argument" message.
type resumeModeValue struct {
	mode *checkpoint.Mode
}

func newResumeModeValue(mode *checkpoint.Mode) *resumeModeValue {
	*mode = checkpoint.ModeBest
	return &resumeModeValue{mode: mode}
}

func (v *resumeModeValue) String() string {
	if v.mode == nil {
		return string(checkpoint.ModeBest)
	}
	return string(*v.mode)
}

func (v *resumeModeValue) Set(s string) error {
	switch checkpoint.Mode(s) {
	case checkpoint.ModeFull, checkpoint.ModeLast, checkpoint.ModeBest, checkpoint.ModeInteractive:
		*v.mode = checkpoint.Mode(s)
		return nil
	default:
		return fmt.Errorf("must be one of full, last, best, interactive (got %q)", s)
	}
}

func (v *resumeModeValue) Type() string { return "mode" }

// resumeFlags holds the parsed resume command-line contract
// (spec.md §6): recognized flags are --resume-operation, --resume-config,
// and --resume-mode. A ResumeContext is returned iff --resume-operation
// is present.
type resumeFlags struct {
	OperationID string
	ConfigPath  string
	Mode        checkpoint.Mode
}

// registerResumeFlags attaches the resume flags to fs and returns the
// struct they populate on parse.
func registerResumeFlags(fs *pflag.FlagSet) *resumeFlags {
	flags := &resumeFlags{}
	fs.StringVar(&flags.OperationID, "resume-operation", "", "operation id to resume")
	fs.StringVar(&flags.ConfigPath, "resume-config", "", "path to the checkpoint directory")
	fs.Var(newResumeModeValue(&flags.Mode), "resume-mode", "resume mode: full, last, best, or interactive")
	return flags
}

// Requested reports whether the operator asked for a resume at all.
func (f *resumeFlags) Requested() bool { return f.OperationID != "" }
