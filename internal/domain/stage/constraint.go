package stage

// Constraint tags a behavioral property of a stage (spec.md §4.C).
type Constraint string

const (
	ConstraintSequentialOnly    Constraint = "sequential_only"
	ConstraintParallelSafe      Constraint = "parallel_safe"
	ConstraintResourceIntensive Constraint = "resource_intensive"
	ConstraintNetworkDependent  Constraint = "network_dependent"
	ConstraintFilesystemDep     Constraint = "filesystem_dependent"
	ConstraintMemoryIntensive   Constraint = "memory_intensive"
	ConstraintCPUIntensive      Constraint = "cpu_intensive"
	ConstraintExclusiveAccess   Constraint = "exclusive_access"
	ConstraintTimeSensitive     Constraint = "time_sensitive"
	ConstraintStateful          Constraint = "stateful"
)

// incompatiblePairs is the incompatibility table from spec.md §4.C.
var incompatiblePairs = map[Constraint]Constraint{
	ConstraintSequentialOnly: ConstraintParallelSafe,
	ConstraintParallelSafe:   ConstraintExclusiveAccess,
}

// Incompatible reports whether a and b may never both apply to the
// same stage, checking the table symmetrically.
func Incompatible(a, b Constraint) bool {
	if other, ok := incompatiblePairs[a]; ok && other == b {
		return true
	}
	if other, ok := incompatiblePairs[b]; ok && other == a {
		return true
	}
	return false
}
