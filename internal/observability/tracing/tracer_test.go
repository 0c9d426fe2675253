package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	cblog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/reconctl/reconctl/internal/logging"
	"github.com/reconctl/reconctl/internal/ports"
)

func TestStartSpanLogsOnEnd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf, Level: "debug", Formatter: cblog.JSONFormatter})
	require.NoError(t, err)

	tr, err := New("reconctl-test", logger)
	require.NoError(t, err)
	defer tr.Shutdown(context.Background())

	_, span := tr.StartSpan(context.Background(), "engine.execute", "pipeline_id", "recon-default")
	span.SetAttribute("stage_count", 3)
	span.SetStatus(ports.SpanStatusOK, "")
	span.End()

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "engine.execute", entry["span_name"])
	require.Equal(t, "recon-default", entry["pipeline_id"])
	require.EqualValues(t, 3, entry["stage_count"])
}

func TestSpanRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf, Level: "debug", Formatter: cblog.JSONFormatter})
	require.NoError(t, err)

	tr, err := New("reconctl-test", logger)
	require.NoError(t, err)
	defer tr.Shutdown(context.Background())

	_, span := tr.StartSpan(context.Background(), "task.run")
	span.SetStatus(ports.SpanStatusError, "stage exited non-zero")
	span.End()

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "Error", entry["status"])
}
