package resume

import (
	"context"
	"time"
)

// cleanup deletes checkpoints for operationID older than cfg.CleanupAge
// and, beyond that, keeps only the cfg.MaxCheckpointsPerOp most recent
// (backend.List already returns ids newest-first).
func (m *Manager) cleanup(ctx context.Context, operationID string, now time.Time) error {
	ids, err := m.backend.List(ctx, operationID)
	if err != nil {
		return err
	}

	for i, id := range ids {
		if i < m.cfg.MaxCheckpointsPerOp {
			md, err := m.backend.GetMetadata(ctx, id)
			if err != nil {
				continue
			}
			if now.Sub(md.CreatedAt) <= m.cfg.CleanupAge {
				continue
			}
		}
		if err := m.backend.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
