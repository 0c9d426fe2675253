package stagefile

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	stageIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// validatorInstance lazily builds and caches the shared validator,
// mirroring the teacher's internal/config/validator_instance.go pattern.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("stage_id", func(fl validator.FieldLevel) bool {
			return stageIDPattern.MatchString(fl.Field().String())
		})
		validateInst = v
	})
	return validateInst
}

// validateDocument runs struct-tag validation over doc, then the
// cross-field checks a struct tag cannot express: duplicate ids and
// dependencies referencing an id absent from the document. Cycle
// detection is intentionally not duplicated here — it is the
// resolver's job once the document is converted to stage.Definitions.
func validateDocument(doc *Document) error {
	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(doc.Stages))
	for i, s := range doc.Stages {
		if _, exists := seen[s.ID]; exists {
			return domainerrors.NewValidationFailed(
				fmt.Sprintf("duplicate stage id %q", s.ID),
				map[string]interface{}{"index": i},
			)
		}
		seen[s.ID] = i
	}
	for i, s := range doc.Stages {
		for _, dep := range s.DependsOn {
			if _, ok := seen[dep]; !ok {
				return domainerrors.NewDependency(
					fmt.Sprintf("stage %q depends_on unknown stage %q", s.ID, dep),
					map[string]interface{}{"index": i},
				)
			}
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok {
		fe := ves[0]
		field := yamlishFieldName(fe)
		return domainerrors.NewValidationFailed(
			fmt.Sprintf("%s failed validation for tag %q", field, fe.Tag()),
			map[string]interface{}{"field": field, "tag": fe.Tag()},
		)
	}
	return domainerrors.NewConfiguration("stagefile document failed validation", err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}
