package ports

import (
	"context"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

// ConfigLoader loads stage definitions from an external source. Kept
// deliberately narrow — full pipeline configuration (environments,
// includes, templating) is out of scope; this exists so
// internal/stagefile and tests share one seam.
type ConfigLoader interface {
	// Load materializes a validated set of stage definitions from path.
	Load(ctx context.Context, path string) ([]stage.Definition, error)
}
