package task

import domainerrors "github.com/reconctl/reconctl/internal/domain/errors"

func newExecError(stageID string, cause error) *domainerrors.Error {
	return domainerrors.NewStageExecutable(stageID, cause)
}
