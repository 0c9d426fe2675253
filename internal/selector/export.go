package selector

import (
	"encoding/json"
	"os"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/stage"
)

// SaveResult writes r's exported document to path, atomically (write to
// a temp file then rename), the way the teacher's registry persists
// JSON documents to disk.
func SaveResult(path string, r Result) error {
	return saveJSON(path, r.Export())
}

// LoadResult reads a selection result document from path and
// reconstructs the fields preserved by the export contract (spec.md §6
// "Selection result export/import").
func LoadResult(path string) (Result, error) {
	var doc ResultDocument
	if err := loadJSON(path, &doc); err != nil {
		return Result{}, err
	}
	return ImportResult(doc), nil
}

// SavePlan writes p's exported document to path, atomically.
func SavePlan(path string, p stage.ExecutionPlan) error {
	return saveJSON(path, p.Export())
}

// LoadPlan reads an execution plan document from path and reconstructs
// the fields preserved by the export contract (spec.md §6 "Execution
// plan export/import").
func LoadPlan(path string) (stage.ExecutionPlan, error) {
	var doc stage.PlanDocument
	if err := loadJSON(path, &doc); err != nil {
		return stage.ExecutionPlan{}, err
	}
	return stage.ImportPlan(doc), nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domainerrors.NewStorage("failed to marshal document", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return domainerrors.NewStorage("failed to write temporary file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return domainerrors.NewStorage("failed to rename temporary file", err)
	}
	return nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domainerrors.NewStorage("failed to read document", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domainerrors.NewStorage("failed to parse document", err)
	}
	return nil
}
