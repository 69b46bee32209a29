package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <id>",
		Short: "Copy a remote node into the local working copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(true, func(s *session) error {
				exp, err := s.mgr.Pull(args[0])
				if err != nil {
					return classify(err, "pull")
				}
				return printExport(cmd, exp)
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [parent-id]",
		Short: "Add a node to the local working copy",
		Long: "Add a node under parent-id, or a new root when parent-id is omitted.\n" +
			"Nothing is added under a parent that is deleted in the working copy.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := types.RootParent
			if len(args) == 1 {
				parent = args[0]
			}
			return withSession(true, func(s *session) error {
				exp, err := s.mgr.Add(parent)
				if err != nil {
					return classify(err, "add")
				}
				return printExport(cmd, exp)
			})
		},
	}
}

func newEditCmd() *cobra.Command {
	var name, value string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the name or value of a local node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e types.Edit
			if cmd.Flags().Changed("name") {
				e.Name = &name
			}
			if cmd.Flags().Changed("value") {
				e.Value = &value
			}
			if e.Name == nil && e.Value == nil {
				return exitError(exitUserError, "edit: nothing to change; pass --name or --value")
			}

			id := args[0]
			return withSession(true, func(s *session) error {
				deleted, err := s.mgr.IsDeleted(id, types.StoreLocal)
				if err != nil {
					return classify(err, "edit")
				}
				if deleted {
					return exitError(exitUserError, "edit: node %s is deleted and cannot be changed", id)
				}
				exp, err := s.mgr.Change(id, e)
				if err != nil {
					return classify(err, "edit")
				}
				return printExport(cmd, exp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name; empty restores the default name")
	cmd.Flags().StringVar(&value, "value", "", "new value")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a local node and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(true, func(s *session) error {
				return printExport(cmd, s.mgr.Delete(args[0]))
			})
		},
	}
}

func newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Merge the local working copy into the remote tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(true, func(s *session) error {
				exp, err := s.mgr.Commit()
				if err != nil {
					return classify(err, "commit")
				}
				return printExport(cmd, exp)
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard all changes and reload the remote tree from its snapshot",
		Long: "Empty both stores, then reload the remote tree from the snapshot recorded\n" +
			"in config.yaml. Without a snapshot the remote tree stays empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(true, func(s *session) error {
				records, err := loadSnapshot(s.settings.Snapshot)
				if err != nil {
					return err
				}
				s.mgr.Reset()
				return printExport(cmd, s.mgr.Bootstrap(records))
			})
		},
	}
}
