package tree

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// NewRemote creates the remote store and populates it from snapshot records
// in order. A child listed before its parent is linked when the parent
// arrives, so the converged tree does not depend on record order.
func NewRemote(records []types.Record, logger *zap.Logger) *Store {
	s := New(types.StoreRemote, logger)
	s.Load(records)
	s.logger.Info("remote loaded", zap.Int("nodes", s.Len()), zap.Int("tombstones", s.Tombstones()))
	return s
}
