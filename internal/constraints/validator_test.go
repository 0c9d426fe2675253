package constraints

import (
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

func TestInferNetworkDependent(t *testing.T) {
	d := stage.Definition{ID: "httpx", Executable: "/usr/bin/httpx", Args: []string{"--url", "http://example.com"}, Timeout: time.Second}
	got := Infer(d)
	if !containsConstraint(got, stage.ConstraintNetworkDependent) {
		t.Fatalf("expected network_dependent, got %v", got)
	}
}

func TestInferFilesystemDependent(t *testing.T) {
	d := stage.Definition{ID: "parse", Executable: "/usr/bin/parse", Args: []string{"--input", "hosts.csv"}, Timeout: time.Second}
	got := Infer(d)
	if !containsConstraint(got, stage.ConstraintFilesystemDep) {
		t.Fatalf("expected filesystem_dependent, got %v", got)
	}
}

func TestInferCPUIntensive(t *testing.T) {
	d := stage.Definition{ID: "bruteforce", Executable: "/usr/bin/bf", Timeout: 10 * time.Minute}
	got := Infer(d)
	if !containsConstraint(got, stage.ConstraintCPUIntensive) {
		t.Fatalf("expected cpu_intensive for > 5m timeout, got %v", got)
	}
}

func TestValidateConstraintCustomOverridesDefault(t *testing.T) {
	reg := NewRegistry()
	d := stage.Definition{ID: "quiet", Executable: "/usr/bin/quiet", Timeout: time.Second}

	if reg.ValidateConstraint(d, stage.ConstraintNetworkDependent) {
		t.Fatal("expected default validator to reject a non-matching stage")
	}

	reg.Register(stage.ConstraintNetworkDependent, func(stage.Definition) bool { return true })
	if !reg.ValidateConstraint(d, stage.ConstraintNetworkDependent) {
		t.Fatal("expected custom validator to override the default")
	}
}

func TestFindViolated(t *testing.T) {
	reg := NewRegistry()
	d := stage.Definition{ID: "s", Executable: "/usr/bin/s", Args: []string{"--url", "http://x"}, Timeout: time.Second}
	violated := reg.FindViolated(d, []stage.Constraint{stage.ConstraintNetworkDependent, stage.ConstraintFilesystemDep})
	if len(violated) != 1 || violated[0] != stage.ConstraintFilesystemDep {
		t.Fatalf("expected only filesystem_dependent to be violated, got %v", violated)
	}
}

func TestCheckCompatibility(t *testing.T) {
	ok := CheckCompatibility([]stage.Constraint{stage.ConstraintNetworkDependent, stage.ConstraintCPUIntensive})
	if !ok {
		t.Fatal("expected unrelated constraints to be compatible")
	}
	bad := CheckCompatibility([]stage.Constraint{stage.ConstraintSequentialOnly, stage.ConstraintParallelSafe})
	if bad {
		t.Fatal("expected sequential_only + parallel_safe to be flagged incompatible")
	}
}

func containsConstraint(cs []stage.Constraint, want stage.Constraint) bool {
	for _, c := range cs {
		if c == want {
			return true
		}
	}
	return false
}
