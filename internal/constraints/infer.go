// Package constraints implements the Constraint Validator component
// (spec.md §4.C): inferring behavioral tags from a stage definition,
// validating a definition against a tag, and checking a tag set for
// internal incompatibilities.
package constraints

import (
	"strings"
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

const cpuIntensiveThreshold = 5 * time.Minute

var networkSubstrings = []string{"http", "--url", "--host"}
var filesystemSubstrings = []string{"--input", "--output", ".csv"}

// Infer derives the constraint set a stage likely carries from its
// executable path, arguments, and timeout (spec.md §4.C heuristics).
// Inference is additive and best-effort. Definition.Metadata is not
// read: a constraint beyond these heuristics comes only from a custom
// validator registered on a Registry.
func Infer(d stage.Definition) []stage.Constraint {
	haystack := strings.ToLower(d.Executable + " " + strings.Join(d.Args, " "))

	var out []stage.Constraint
	if containsAny(haystack, networkSubstrings) {
		out = append(out, stage.ConstraintNetworkDependent)
	}
	if containsAny(haystack, filesystemSubstrings) {
		out = append(out, stage.ConstraintFilesystemDep)
	}
	if d.Timeout > cpuIntensiveThreshold {
		out = append(out, stage.ConstraintCPUIntensive)
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
