package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/internal/logging"
	"github.com/mesh-intelligence/treesync/internal/paths"
	"github.com/mesh-intelligence/treesync/internal/render"
	"github.com/mesh-intelligence/treesync/internal/syncer"
	"github.com/mesh-intelligence/treesync/internal/tree"
	"github.com/mesh-intelligence/treesync/pkg/treesync"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// session is one invocation's view of the workspace: the attached backend,
// the stores rebuilt from it and the manager over them.
type session struct {
	settings settings
	ws       types.Workspace
	mgr      *syncer.Manager
	logger   *zap.Logger
}

// resolveSettings loads config.yaml from the resolved config directory and
// applies the --data-dir flag. It returns the settings and the data dir.
func resolveSettings() (settings, string, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, "", exitError(exitSysError, "resolve config dir: %s", err)
	}
	s, err := loadSettings(configDir)
	if err != nil {
		return settings{}, "", exitError(exitSysError, "%s", err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, s.DataDir)
	if err != nil {
		return settings{}, "", exitError(exitSysError, "resolve data dir: %s", err)
	}
	return s, dataDir, nil
}

func newLogger(s settings) (*zap.Logger, error) {
	logger, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, exitError(exitUserError, "configure logging: %s", err)
	}
	return logger, nil
}

// openSession attaches the workspace and loads both stores. A workspace that
// was never initialized is a user error.
func openSession() (*session, error) {
	s, dataDir, err := resolveSettings()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(s)
	if err != nil {
		return nil, err
	}

	ws, err := treesync.Open(s.workspaceConfig(dataDir), logger)
	if err != nil {
		return nil, classify(err, "open workspace %s", dataDir)
	}

	remoteRecords, err := ws.LoadStore(types.StoreRemote)
	if err != nil {
		ws.Detach()
		if errors.Is(err, types.ErrStoreNotFound) {
			return nil, exitError(exitUserError, "workspace %s is not initialized; run treesync init", dataDir)
		}
		return nil, classify(err, "load remote store")
	}
	localRecords, err := ws.LoadStore(types.StoreLocal)
	if err != nil && !errors.Is(err, types.ErrStoreNotFound) {
		ws.Detach()
		return nil, classify(err, "load local store")
	}

	remote := tree.NewRemote(remoteRecords, logger)
	local := tree.New(types.StoreLocal, logger)
	local.Load(localRecords)

	return &session{
		settings: s,
		ws:       ws,
		logger:   logger,
		mgr:      syncer.New(remote, local, syncer.WithLogger(logger), syncer.WithJournal(ws)),
	}, nil
}

// save writes both stores back to the workspace.
func (s *session) save() error {
	if err := s.ws.SaveStore(types.StoreRemote, s.mgr.Remote().Records()); err != nil {
		return classify(err, "save remote store")
	}
	if err := s.ws.SaveStore(types.StoreLocal, s.mgr.Local().Records()); err != nil {
		return classify(err, "save local store")
	}
	return nil
}

// close detaches the workspace, flushing deferred writes.
func (s *session) close() error {
	_ = s.logger.Sync()
	if err := s.ws.Detach(); err != nil {
		return classify(err, "close workspace")
	}
	return nil
}

// withSession runs fn on an open session. When mutate is true the stores
// are saved after fn succeeds.
func withSession(mutate bool, fn func(*session) error) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	err = fn(sess)
	if err == nil && mutate {
		err = sess.save()
	}
	if cerr := sess.close(); err == nil {
		err = cerr
	}
	return err
}

// printExport renders exp as a tree, or as JSON with --json.
func printExport(cmd *cobra.Command, exp types.Export) error {
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if err := render.JSON(out, exp); err != nil {
			return exitError(exitSysError, "write output: %s", err)
		}
		return nil
	}
	opts := render.Options{Color: !flags.noColor && !color.NoColor}
	if err := render.Tree(out, exp, opts); err != nil {
		return exitError(exitSysError, "write output: %s", err)
	}
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
		return exitError(exitSysError, "write output: %s", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
