// Package badgerstore implements the workspace on an embedded badger
// key-value store. Each store is one key holding a JSON array of records and
// each commit is one key under the commit prefix.
package badgerstore

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/internal/logging"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// dbDir is the badger directory inside the data directory.
const dbDir = "badger"

const (
	storePrefix  = "store/"
	commitPrefix = "commit/"
)

// ErrDuplicateCommit is returned when a commit id is journaled twice.
var ErrDuplicateCommit = errors.New("commit already journaled")

var _ types.Workspace = (*Backend)(nil)

// Backend implements types.Workspace on badger. Every write is its own
// badger transaction, so the sync strategy has no effect.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *badger.DB
	logger   *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend returns a detached backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger).With(zap.String("backend", types.BackendBadger))
	return b
}

// Attach opens the badger database under config.DataDir.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	path := filepath.Join(dataDir, dbDir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	b.db = db
	b.attached = true
	b.logger.Debug("attached", zap.String("path", path))
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing BadgerDB: %w", err)
	}
	b.db = nil
	b.attached = false
	b.logger.Debug("detached")
	return nil
}

func storeKey(name string) ([]byte, error) {
	if !slices.Contains(types.StandardStoreNames, name) {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, name)
	}
	return []byte(storePrefix + name), nil
}

// LoadStore returns the records of the named store in saved order.
func (b *Backend) LoadStore(name string) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkspaceDetached
	}
	key, err := storeKey(name)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &records)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", name, types.ErrStoreNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load store %s: %w", name, err)
	}

	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// SaveStore replaces the named store.
func (b *Backend) SaveStore(name string, records []types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrWorkspaceDetached
	}
	key, err := storeKey(name)
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.Record{}
	}
	value, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal store %s: %w", name, err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to save store %s: %w", name, err)
	}
	b.logger.Debug("saved store", zap.String("store", name), zap.Int("nodes", len(records)))
	return nil
}

// AppendCommit journals entry under its commit id.
func (b *Backend) AppendCommit(entry types.CommitEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrWorkspaceDetached
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal commit: %w", err)
	}
	key := []byte(commitPrefix + entry.CommitID)

	err = b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateCommit, entry.CommitID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to journal commit: %w", err)
	}
	b.logger.Debug("journaled commit", zap.String("commit_id", entry.CommitID))
	return nil
}

// Commits returns the journal, oldest first.
func (b *Backend) Commits() ([]types.CommitEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkspaceDetached
	}

	var out []types.CommitEntry
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(commitPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e types.CommitEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read commits: %w", err)
	}

	slices.SortStableFunc(out, func(a, b types.CommitEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.CommitID, b.CommitID)
	})
	return out, nil
}
