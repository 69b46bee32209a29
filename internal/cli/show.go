package cli

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/treesync/internal/snapshot"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

func newShowCmd(store, short string) *cobra.Command {
	return &cobra.Command{
		Use:   store,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(false, func(s *session) error {
				exp, err := s.mgr.Export(store)
				if err != nil {
					return classify(err, "show")
				}
				return printExport(cmd, exp)
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Report whether a node is deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(false, func(s *session) error {
				rec, err := s.mgr.Get(store, id)
				if err != nil {
					return classify(err, "status")
				}
				if flags.jsonMode {
					return printJSON(cmd, map[string]any{
						"store":   store,
						"id":      id,
						"deleted": rec.Deleted,
						"node":    rec,
					})
				}
				state := "live"
				if rec.Deleted {
					state = "deleted"
				}
				printf(cmd, "%s %s: %s\n", store, id, state)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&store, "store", types.StoreLocal, "store to inspect: local or remote")
	return cmd
}

func newExportCmd() *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write a store as a snapshot file",
		Long:  "Write the store in the snapshot format accepted by init --snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return withSession(false, func(s *session) error {
				if store != types.StoreLocal && store != types.StoreRemote {
					return classify(types.ErrUnknownStore, "export %q", store)
				}
				records := s.mgr.Remote().Records()
				if store == types.StoreLocal {
					records = s.mgr.Local().Records()
				}
				if err := snapshot.WriteFile(path, records); err != nil {
					return exitError(exitSysError, "export: %s", err)
				}
				printf(cmd, "exported %d %s nodes to %s\n", len(records), store, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&store, "store", types.StoreRemote, "store to export: local or remote")
	return cmd
}

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List applied commits, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(false, func(s *session) error {
				commits, err := s.ws.Commits()
				if err != nil {
					return classify(err, "log")
				}
				if flags.jsonMode {
					if commits == nil {
						commits = []types.CommitEntry{}
					}
					return printJSON(cmd, commits)
				}
				for _, c := range commits {
					printf(cmd, "%s %s transferred=%d remote=%d deleted=%d\n",
						c.CommitID, c.CreatedAt.Local().Format(time.DateTime),
						c.Transferred, c.RemoteSize, c.Tombstones)
				}
				return nil
			})
		},
	}
}

// loadSnapshot reads the snapshot at path. An empty path yields no records.
func loadSnapshot(path string) ([]types.Record, error) {
	if path == "" {
		return nil, nil
	}
	records, err := snapshot.LoadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, exitError(exitUserError, "load snapshot: %s", err)
	}
	if err != nil {
		return nil, classify(err, "load snapshot")
	}
	return records, nil
}
