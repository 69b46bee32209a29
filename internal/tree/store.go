// Package tree implements the in-memory node store used for both the local
// working copy and the remote authoritative tree. A store is a forest keyed
// by node ID; parent/child links are inferred on every insert and deletion is
// a cascading tombstone that never removes entries.
package tree

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// Store is a forest of nodes keyed by ID. The zero value is not usable; call
// New or NewRemote. Store is not safe for concurrent use.
type Store struct {
	name   string
	logger *zap.Logger
	nodes  map[string]*types.Node
	order  []string // first-insertion order of IDs
}

// New creates an empty store. A nil logger disables logging.
func New(name string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		name:   name,
		logger: logger.With(zap.String("store", name)),
		nodes:  make(map[string]*types.Node),
	}
}

// Name returns the store name ("local" or "remote").
func (s *Store) Name() string { return s.name }

// Add inserts or overwrites n. Relationships are inferred before the node is
// stored, and tombstones are propagated after, so children discovered during
// inference are cascaded too. Tombstones are terminal: overwriting a deleted
// id with a live node leaves it deleted.
func (s *Store) Add(n *types.Node) {
	id := n.ID()
	s.findRelatives(n)

	prev, existed := s.nodes[id]
	s.nodes[id] = n
	if !existed {
		s.order = append(s.order, id)
	}

	switch {
	case existed && prev.Deleted():
		s.logger.Debug("keeping tombstone on overwrite", zap.String("id", id))
		s.Delete(id)
	case s.parentDeleted(n):
		s.logger.Debug("cascading from deleted parent", zap.String("id", id), zap.String("parent", n.Parent()))
		s.Delete(id)
	case n.Deleted():
		s.Delete(id)
	}
}

// Receive stores a node transferred from another store.
func (s *Store) Receive(n *types.Node) {
	s.Add(n)
}

// findRelatives links n to its parent if the parent is present, and links
// every present node whose parent is n as a child of n. It scans the whole
// store.
func (s *Store) findRelatives(n *types.Node) {
	id := n.ID()
	if parent, ok := s.nodes[n.Parent()]; ok && n.Parent() != id {
		parent.AddChild(id)
	}
	for _, otherID := range s.order {
		if otherID == id {
			continue
		}
		if s.nodes[otherID].Parent() == id {
			n.AddChild(otherID)
		}
	}
}

func (s *Store) parentDeleted(n *types.Node) bool {
	parent, ok := s.nodes[n.Parent()]
	return ok && parent.Deleted()
}

// Delete marks the node and every node reachable through its children as
// deleted. Absent IDs are ignored.
func (s *Store) Delete(id string) {
	if _, ok := s.nodes[id]; !ok {
		return
	}
	s.cascade(id, make(map[string]bool))
	s.logger.Debug("deleted", zap.String("id", id))
}

func (s *Store) cascade(id string, seen map[string]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.MarkDeleted()
	for _, child := range n.Children() {
		s.cascade(child, seen)
	}
}

// ChangeVolatile applies the name and value carried by e. Deleted nodes are
// silently left unchanged. Returns ErrNotFound if id is absent.
func (s *Store) ChangeVolatile(id string, e types.Edit) error {
	n, ok := s.nodes[id]
	if !ok {
		return types.ErrNotFound
	}
	if n.Deleted() {
		s.logger.Debug("ignoring edit of deleted node", zap.String("id", id))
		return nil
	}
	if e.Name != nil {
		n.SetName(*e.Name)
	}
	if e.Value != nil {
		n.SetValue(*e.Value)
	}
	return nil
}

// Get returns the full record of id, children included.
func (s *Store) Get(id string) (types.Record, error) {
	n, ok := s.nodes[id]
	if !ok {
		return types.Record{}, types.ErrNotFound
	}
	return n.ToRecord(true), nil
}

// Has reports whether id is present, deleted or not.
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// IsDeleted reports whether id carries a tombstone. Returns ErrNotFound if id
// is absent.
func (s *Store) IsDeleted(id string) (bool, error) {
	n, ok := s.nodes[id]
	if !ok {
		return false, types.ErrNotFound
	}
	return n.Deleted(), nil
}

// Len returns the number of nodes, tombstones included.
func (s *Store) Len() int { return len(s.nodes) }

// Tombstones returns the number of deleted nodes.
func (s *Store) Tombstones() int {
	count := 0
	for _, n := range s.nodes {
		if n.Deleted() {
			count++
		}
	}
	return count
}

// IDs returns the node IDs in first-insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Reset discards every node.
func (s *Store) Reset() {
	s.nodes = make(map[string]*types.Node)
	s.order = nil
	s.logger.Debug("reset")
}

// ExportAll returns id -> full record for every node.
func (s *Store) ExportAll() map[string]types.Record {
	out := make(map[string]types.Record, len(s.nodes))
	for id, n := range s.nodes {
		out[id] = n.ToRecord(true)
	}
	return out
}

// Records returns the full records in first-insertion order.
func (s *Store) Records() []types.Record {
	out := make([]types.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].ToRecord(true))
	}
	return out
}

// Duplicates returns a childless value copy of every node in first-insertion
// order, ready to be received by another store.
func (s *Store) Duplicates() []*types.Node {
	out := make([]*types.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Duplicate())
	}
	return out
}

// Load adds records in order. Children carried by the records are kept and
// extended by inference.
func (s *Store) Load(records []types.Record) {
	for _, rec := range records {
		s.Add(types.NewNode(rec))
	}
}

// Clone returns an independent copy of the store that shares no nodes with s.
func (s *Store) Clone() *Store {
	c := &Store{
		name:   s.name,
		logger: s.logger,
		nodes:  make(map[string]*types.Node, len(s.nodes)),
		order:  s.IDs(),
	}
	for id, n := range s.nodes {
		c.nodes[id] = types.NewNode(n.ToRecord(true))
	}
	return c
}

// Replace swaps in the contents of other. other must not be used afterwards.
func (s *Store) Replace(other *Store) {
	s.nodes = other.nodes
	s.order = other.order
}
