// Package cli implements the treesync command-line interface. Each command
// opens the workspace, rebuilds the remote and local stores from it, runs one
// sync-manager operation and saves the stores back.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/treesync/internal/snapshot"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	noColor   bool
}

var flags rootFlags

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// NewRootCmd creates the top-level "treesync" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "treesync",
		Short: "Edit a hierarchical store through a local working copy",
		Long: "treesync keeps a remote tree and a local working copy. Pull nodes into\n" +
			"the working copy, add, edit and delete them there, then commit the\n" +
			"working copy back into the remote tree.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .treesync)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .treesync-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable highlighting of deleted nodes")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newShowCmd(types.StoreRemote, "Print the remote tree"))
	root.AddCommand(newShowCmd(types.StoreLocal, "Print the local working copy"))
	root.AddCommand(newPullCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newLogCmd())

	return root
}

// Execute runs the root command against the process arguments and returns
// the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Argument and flag parsing errors from cobra.
	return exitUserError
}

// exitError wraps msg with the given exit code.
func exitError(code int, format string, args ...any) error {
	return &ExitError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// classify maps err to a user or system exit error.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isUserError(err) {
		return exitError(exitUserError, "%s: %s", msg, err)
	}
	return exitError(exitSysError, "%s: %s", msg, err)
}

func isUserError(err error) bool {
	for _, target := range []error{
		types.ErrNotFound,
		types.ErrUnknownStore,
		types.ErrStoreNotFound,
		types.ErrBackendEmpty,
		types.ErrBackendUnknown,
		types.ErrSyncStrategyUnknown,
		types.ErrIDSpaceExhausted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return snapshot.IsMalformed(err)
}
