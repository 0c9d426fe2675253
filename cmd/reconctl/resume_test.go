package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reconctl/reconctl/internal/checkpointstore/filestore"
	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	"github.com/reconctl/reconctl/internal/logging"
	"github.com/reconctl/reconctl/internal/resume"
)

func seedCheckpoint(t *testing.T, dir, operationID string, percent float64) {
	t.Helper()
	backend := filestore.New(dir)
	manager := resume.NewManager(backend, resume.Config{VerificationEnabled: true}.WithDefaults())
	manager.RegisterRunning(operationID)
	_, err := manager.ForceCheckpoint(context.Background(), operationID, checkpoint.PipelineState{
		CompletedStages: []string{"subhunter"},
		PendingStages:   []string{"httpxpp"},
	}, percent, "subhunter", 1024, "seed")
	require.NoError(t, err)
}

func TestResolveResumeContextBestMode(t *testing.T) {
	dir := t.TempDir()
	seedCheckpoint(t, dir, "op1", 50)

	flags := &resumeFlags{OperationID: "op1", ConfigPath: dir, Mode: checkpoint.ModeBest}
	rc, err := resolveResumeContext(context.Background(), flags, logging.NewNoOpLogger())
	require.NoError(t, err)
	require.Equal(t, "op1", rc.OperationID)
	require.Equal(t, []string{"subhunter"}, rc.CompletedStages)
}

func TestResolveResumeContextLastMode(t *testing.T) {
	dir := t.TempDir()
	seedCheckpoint(t, dir, "op1", 30)
	seedCheckpoint(t, dir, "op1", 60)

	flags := &resumeFlags{OperationID: "op1", ConfigPath: dir, Mode: checkpoint.ModeLast}
	rc, err := resolveResumeContext(context.Background(), flags, logging.NewNoOpLogger())
	require.NoError(t, err)
	require.Equal(t, "op1", rc.OperationID)
}

func TestResolveResumeContextInteractiveModeRejected(t *testing.T) {
	dir := t.TempDir()
	flags := &resumeFlags{OperationID: "op1", ConfigPath: dir, Mode: checkpoint.ModeInteractive}
	_, err := resolveResumeContext(context.Background(), flags, logging.NewNoOpLogger())
	require.Error(t, err)
}

func TestResolveResumeContextNoCheckpointsReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	flags := &resumeFlags{OperationID: "missing-op", ConfigPath: dir, Mode: checkpoint.ModeLast}
	_, err := resolveResumeContext(context.Background(), flags, logging.NewNoOpLogger())
	require.Error(t, err)
}

func TestResumeCommandRequiresOperationFlag(t *testing.T) {
	dir := t.TempDir()
	cmd := newResumeCmd(logging.NewNoOpLogger())
	cmd.SetArgs([]string{"--resume-config", filepath.Join(dir, "checkpoints")})
	require.NoError(t, cmd.Execute())
}
