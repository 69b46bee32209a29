// Package syncer coordinates the remote and local stores. Every user-facing
// mutation enters through Manager: pull one node from remote, add, edit and
// delete in local, and commit local into remote. Each operation returns the
// export of the store it changed so the caller can re-render it.
package syncer

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/internal/logging"
	"github.com/mesh-intelligence/treesync/internal/tree"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// Journal records applied commits. types.Workspace satisfies it.
type Journal interface {
	AppendCommit(entry types.CommitEntry) error
}

// Manager owns one remote and one local store. It is not safe for
// concurrent use.
type Manager struct {
	remote  *tree.Store
	local   *tree.Store
	logger  *zap.Logger
	ids     *IDGenerator
	rng     *rand.Rand
	journal Journal
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRand sets the random source used for node identifiers.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithJournal records every commit in j before it is applied.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// New returns a Manager over remote and local. A nil local starts empty.
func New(remote, local *tree.Store, opts ...Option) *Manager {
	m := &Manager{
		remote: remote,
		local:  local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	if m.local == nil {
		m.local = tree.New(types.StoreLocal, m.logger)
	}
	m.ids = NewIDGenerator(m.rng, m.idTaken)
	return m
}

// idTaken rejects ids present in either store.
func (m *Manager) idTaken(id string) bool {
	return m.remote.Has(id) || m.local.Has(id)
}

// Remote returns the remote store.
func (m *Manager) Remote() *tree.Store { return m.remote }

// Local returns the local store.
func (m *Manager) Local() *tree.Store { return m.local }

// Pull copies the remote node id, with its remote children, into local.
// Returns ErrNotFound if remote has no such node.
func (m *Manager) Pull(id string) (types.Export, error) {
	rec, err := m.remote.Get(id)
	if err != nil {
		return types.Export{}, fmt.Errorf("pull %s: %w", id, err)
	}
	m.local.Receive(types.NewNode(rec))
	m.logger.Info("pulled", zap.String("id", id), zap.Bool("deleted", rec.Deleted))
	return m.exportLocal(), nil
}

// Add creates a node under parentID in local. An empty parentID creates a
// root. When the parent is present in local and deleted nothing is added and
// the unchanged export is returned.
func (m *Manager) Add(parentID string) (types.Export, error) {
	if parentID == "" {
		parentID = types.RootParent
	}
	if deleted, err := m.local.IsDeleted(parentID); err == nil && deleted {
		m.logger.Info("refusing to add under deleted parent", zap.String("parent", parentID))
		return m.exportLocal(), nil
	}

	id, err := m.ids.Next()
	if err != nil {
		return types.Export{}, fmt.Errorf("add under %s: %w", parentID, err)
	}
	m.local.Add(types.NewNode(types.Record{ID: id, Parent: parentID}))
	m.logger.Info("added", zap.String("id", id), zap.String("parent", parentID))
	return m.exportLocal(), nil
}

// Change applies e to the local node id. Edits of deleted nodes are ignored.
func (m *Manager) Change(id string, e types.Edit) (types.Export, error) {
	if err := m.local.ChangeVolatile(id, e); err != nil {
		return types.Export{}, fmt.Errorf("change %s: %w", id, err)
	}
	return m.exportLocal(), nil
}

// Delete tombstones the local node id and its descendants.
func (m *Manager) Delete(id string) types.Export {
	m.local.Delete(id)
	return m.exportLocal()
}

// Commit merges every local node into remote and then refreshes local from
// the merged remote. The merge is staged on a copy of remote and swapped in
// only after the journal accepted the commit, so a failure leaves remote
// untouched.
func (m *Manager) Commit() (types.Export, error) {
	staged := m.remote.Clone()
	dups := m.local.Duplicates()
	for _, n := range dups {
		staged.Receive(n)
	}

	entry := types.CommitEntry{
		CommitID:    newCommitID(),
		CreatedAt:   m.now().UTC(),
		Transferred: len(dups),
		RemoteSize:  staged.Len(),
		Tombstones:  staged.Tombstones(),
	}
	if m.journal != nil {
		if err := m.journal.AppendCommit(entry); err != nil {
			return types.Export{}, fmt.Errorf("journal commit: %w", err)
		}
	}
	m.remote.Replace(staged)
	m.renewLocal()

	m.logger.Info("committed",
		zap.String("commit_id", entry.CommitID),
		zap.Int("transferred", entry.Transferred),
		zap.Int("remote_size", entry.RemoteSize),
		zap.Int("tombstones", entry.Tombstones))
	return m.exportRemote(), nil
}

// renewLocal re-pulls every local node that exists in remote so local holds
// the merged revision.
func (m *Manager) renewLocal() {
	for _, id := range m.local.IDs() {
		rec, err := m.remote.Get(id)
		if err != nil {
			continue
		}
		m.local.Receive(types.NewNode(rec))
	}
}

// Reset empties both stores.
func (m *Manager) Reset() {
	m.remote.Reset()
	m.local.Reset()
	m.logger.Info("reset")
}

// Bootstrap loads records into remote, typically after Reset.
func (m *Manager) Bootstrap(records []types.Record) types.Export {
	m.remote.Load(records)
	return m.exportRemote()
}

// IsDeleted reports whether id is tombstoned in the named store.
func (m *Manager) IsDeleted(id, store string) (bool, error) {
	s, err := m.store(store)
	if err != nil {
		return false, err
	}
	deleted, err := s.IsDeleted(id)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", store, id, err)
	}
	return deleted, nil
}

// Get returns the full record of id from the named store.
func (m *Manager) Get(store, id string) (types.Record, error) {
	s, err := m.store(store)
	if err != nil {
		return types.Record{}, err
	}
	rec, err := s.Get(id)
	if err != nil {
		return types.Record{}, fmt.Errorf("%s %s: %w", store, id, err)
	}
	return rec, nil
}

// Export returns the materialized view of the named store.
func (m *Manager) Export(store string) (types.Export, error) {
	s, err := m.store(store)
	if err != nil {
		return types.Export{}, err
	}
	return types.Export{Store: s.Name(), Nodes: s.ExportAll()}, nil
}

func (m *Manager) store(name string) (*tree.Store, error) {
	switch name {
	case types.StoreLocal:
		return m.local, nil
	case types.StoreRemote:
		return m.remote, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, name)
	}
}

func (m *Manager) exportLocal() types.Export {
	return types.Export{Store: types.StoreLocal, Nodes: m.local.ExportAll()}
}

func (m *Manager) exportRemote() types.Export {
	return types.Export{Store: types.StoreRemote, Nodes: m.remote.ExportAll()}
}

// newCommitID generates a UUID v7 for a commit.
func newCommitID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
