package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/treesync/internal/paths"
	"github.com/mesh-intelligence/treesync/internal/tree"
	"github.com/mesh-intelligence/treesync/pkg/treesync"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

func newInitCmd() *cobra.Command {
	var snapshotPath, backend string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace",
		Long: "Create the configuration and data directories, load the remote tree from\n" +
			"a snapshot file and start with an empty working copy. Running init on an\n" +
			"initialized workspace replaces both stores.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, snapshotPath, backend)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "JSON snapshot that seeds the remote tree")
	cmd.Flags().StringVar(&backend, "backend", "", "workspace backend: sqlite or badger (default: sqlite)")
	return cmd
}

func runInit(cmd *cobra.Command, snapshotPath, backend string) error {
	configDir, err := paths.LocalConfigDir(flags.configDir)
	if err != nil {
		return exitError(exitSysError, "resolve config dir: %s", err)
	}
	if snapshotPath != "" {
		if snapshotPath, err = filepath.Abs(snapshotPath); err != nil {
			return exitError(exitSysError, "resolve snapshot path: %s", err)
		}
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return exitError(exitSysError, "create config directory: %s", err)
	}

	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, configFile{
		Backend:  orDefault(backend, defaultBackend),
		DataDir:  flags.dataDir,
		Snapshot: snapshotPath,
		LogLevel: defaultLogLevel,
	}); err != nil {
		return exitError(exitSysError, "write config: %s", err)
	}

	s, err := loadSettings(configDir)
	if err != nil {
		return exitError(exitSysError, "%s", err)
	}
	if backend != "" {
		s.Backend = backend
	}
	if snapshotPath == "" {
		snapshotPath = s.Snapshot
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, s.DataDir)
	if err != nil {
		return exitError(exitSysError, "resolve data dir: %s", err)
	}
	logger, err := newLogger(s)
	if err != nil {
		return err
	}

	records, err := loadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	remote := tree.NewRemote(records, logger)

	ws, err := treesync.Open(s.workspaceConfig(dataDir), logger)
	if err != nil {
		return classify(err, "initialize storage")
	}
	if err := ws.SaveStore(types.StoreRemote, remote.Records()); err != nil {
		ws.Detach()
		return classify(err, "save remote store")
	}
	if err := ws.SaveStore(types.StoreLocal, nil); err != nil {
		ws.Detach()
		return classify(err, "save local store")
	}
	if err := ws.Detach(); err != nil {
		return classify(err, "finalize storage")
	}

	if flags.jsonMode {
		return printJSON(cmd, map[string]any{
			"config_dir":   configDir,
			"data_dir":     dataDir,
			"backend":      s.Backend,
			"remote_nodes": remote.Len(),
		})
	}
	printf(cmd, "treesync initialized: %d remote nodes in %s\n", remote.Len(), dataDir)
	return nil
}

// orDefault returns v, or def when v is empty.
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
