package types

import "errors"

// Store and manager errors.
var (
	ErrNotFound         = errors.New("node not found")
	ErrUnknownStore     = errors.New("unknown store")
	ErrIDSpaceExhausted = errors.New("node id space exhausted")
)

// Snapshot errors. Callers receive them wrapped with the offending record.
var (
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrCyclicParent      = errors.New("cyclic parent chain")
)

// Workspace lifecycle errors.
var (
	ErrWorkspaceDetached = errors.New("workspace is detached")
	ErrAlreadyAttached   = errors.New("workspace is already attached")
	ErrStoreNotFound     = errors.New("store has not been saved")
)
