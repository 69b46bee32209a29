// Package treesync provides the public entry point for opening a workspace
// while keeping the backend implementations internal.
package treesync

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/internal/badgerstore"
	"github.com/mesh-intelligence/treesync/internal/sqlite"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// Version is the release version reported by the CLI.
const Version = "0.3.0"

// NewWorkspace returns a detached workspace for cfg.Backend. Returns
// ErrBackendEmpty or ErrBackendUnknown for a bad backend name.
func NewWorkspace(cfg types.Config, logger *zap.Logger) (types.Workspace, error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(sqlite.WithLogger(logger)), nil
	case types.BackendBadger:
		return badgerstore.NewBackend(badgerstore.WithLogger(logger)), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, types.ErrBackendUnknown
	}
}

// Open creates the workspace for cfg and attaches it. The caller must Detach.
//
// Example:
//
//	ws, err := treesync.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".treesync-db",
//	}, nil)
//	defer ws.Detach()
func Open(cfg types.Config, logger *zap.Logger) (types.Workspace, error) {
	ws, err := NewWorkspace(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ws.Attach(cfg); err != nil {
		return nil, err
	}
	return ws, nil
}
