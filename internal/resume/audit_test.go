package resume

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
)

func TestAuditLogCheckpointCreatedWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLog(&buf)

	audit.CheckpointCreated(checkpoint.Metadata{
		CheckpointID:    "op1_1000_abcde",
		OperationID:     "op1",
		StageName:       "nmap_scan",
		ProgressPercent: 50,
		Verified:        true,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse audit line: %v", err)
	}
	if entry["event"] != "checkpoint_created" {
		t.Fatalf("unexpected event field: %v", entry["event"])
	}
	if entry["checkpoint_id"] != "op1_1000_abcde" {
		t.Fatalf("unexpected checkpoint_id: %v", entry["checkpoint_id"])
	}
}

func TestAuditLogResumeAttempted(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLog(&buf)

	audit.ResumeAttempted("op1", "op1_1000_abcde", checkpoint.ModeBest, true, time.Now())

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse audit line: %v", err)
	}
	if entry["mode"] != "best" || entry["success"] != true {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}
