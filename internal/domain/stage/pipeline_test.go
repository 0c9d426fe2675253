package stage

import (
	"errors"
	"testing"
	"time"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

func mustDef(id string, deps ...string) Definition {
	return Definition{
		ID:         id,
		Executable: "/bin/echo",
		Priority:   PriorityNormal,
		Timeout:    time.Second,
		DependsOn:  deps,
	}
}

func TestPipelineValidateLinear(t *testing.T) {
	p := NewPipeline("p1", "linear")
	if err := p.AddStage(mustDef("a")); err != nil {
		t.Fatal(err)
	}
	if err := p.AddStage(mustDef("b", "a")); err != nil {
		t.Fatal(err)
	}
	if err := p.AddStage(mustDef("c", "b")); err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPipelineValidateMissingDependency(t *testing.T) {
	p := NewPipeline("p1", "missing-dep")
	_ = p.AddStage(mustDef("a", "ghost"))

	err := p.Validate()
	var derr *domainerrors.Error
	if !errors.As(err, &derr) || derr.Code != domainerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDefinitionValidateSelfCycle(t *testing.T) {
	def := mustDef("a", "a")
	err := def.Validate()
	var derr *domainerrors.Error
	if !errors.As(err, &derr) || derr.Code != domainerrors.CodeDependency {
		t.Fatalf("expected self-dependency rejected at definition level, got %v", err)
	}
}

func TestPipelineValidateThreeCycle(t *testing.T) {
	p := NewPipeline("p1", "cycle")
	_ = p.AddStage(mustDef("a"))
	_ = p.AddStage(mustDef("b"))
	_ = p.AddStage(mustDef("c"))
	_ = p.UpdateStage(mustDef("a", "c"))
	_ = p.UpdateStage(mustDef("b", "a"))
	_ = p.UpdateStage(mustDef("c", "b"))

	err := p.Validate()
	var derr *domainerrors.Error
	if !errors.As(err, &derr) || derr.Code != domainerrors.CodeDependency {
		t.Fatalf("expected cycle error, got %v", err)
	}
	path, _ := derr.Context["path"].([]string)
	if len(path) < 3 {
		t.Fatalf("expected cycle path with at least 3 entries, got %v", path)
	}
}

func TestPipelineAddDuplicateRejected(t *testing.T) {
	p := NewPipeline("p1", "dup")
	_ = p.AddStage(mustDef("a"))
	if err := p.AddStage(mustDef("a")); err == nil {
		t.Fatal("expected duplicate stage id to be rejected")
	}
}

func TestPipelineRemoveAndGetStage(t *testing.T) {
	p := NewPipeline("p1", "remove")
	_ = p.AddStage(mustDef("a"))
	if _, err := p.GetStage("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RemoveStage("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.GetStage("a"); err == nil {
		t.Fatal("expected not-found after removal")
	}
}
