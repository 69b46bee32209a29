package types

import "time"

// Workspace persists the two stores and the commit journal between CLI
// invocations. Callers attach to a backend, load and save stores by name, and
// detach when done.
type Workspace interface {
	// Attach connects the Workspace to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached if
	// called while already attached.
	Attach(config Config) error

	// Detach releases backend resources and flushes pending writes.
	// Idempotent. After Detach, operations return ErrWorkspaceDetached.
	Detach() error

	// LoadStore returns the records of the named store in the order they
	// were saved. Returns ErrStoreNotFound if the store was never saved.
	LoadStore(name string) ([]Record, error)

	// SaveStore replaces the contents of the named store.
	SaveStore(name string, records []Record) error

	// AppendCommit records a commit in the journal.
	AppendCommit(entry CommitEntry) error

	// Commits returns the journal, oldest first.
	Commits() ([]CommitEntry, error)
}

// CommitEntry describes one commit of the local store into the remote store.
type CommitEntry struct {
	CommitID    string    `json:"commit_id"`   // UUID v7, generated per commit.
	CreatedAt   time.Time `json:"created_at"`  // When the commit was applied.
	Transferred int       `json:"transferred"` // Local nodes sent to remote.
	RemoteSize  int       `json:"remote_size"` // Remote nodes after the merge.
	Tombstones  int       `json:"tombstones"`  // Deleted remote nodes after the merge.
}
