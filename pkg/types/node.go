package types

import "slices"

// RootParent is the parent sentinel carried by root nodes.
const RootParent = "None"

// DefaultNamePrefix is prepended to a node's ID to form its default name.
const DefaultNamePrefix = "default_name"

// Node is a tree element. ID and Parent are fixed at construction; Name and
// Value are user-editable until the node is deleted. Children is maintained
// by the owning store through relationship inference.
type Node struct {
	id       string
	parent   string
	name     string
	value    string
	children []string
	deleted  bool
}

// NewNode builds a Node from a record. An empty parent becomes RootParent,
// an empty name becomes the default name, and the children list is copied so
// the node never shares it with the record.
func NewNode(rec Record) *Node {
	n := &Node{
		id:       rec.ID,
		parent:   rec.Parent,
		value:    rec.Value,
		deleted:  rec.Deleted,
		children: make([]string, 0, len(rec.Children)),
	}
	if n.parent == "" {
		n.parent = RootParent
	}
	for _, c := range rec.Children {
		n.AddChild(c)
	}
	n.SetName(rec.Name)
	return n
}

// ID returns the node identifier.
func (n *Node) ID() string { return n.id }

// Parent returns the parent identifier, RootParent for roots.
func (n *Node) Parent() string { return n.parent }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Value returns the node value.
func (n *Node) Value() string { return n.value }

// Deleted reports whether the node carries a tombstone.
func (n *Node) Deleted() bool { return n.deleted }

// IsRoot reports whether the node has the root parent sentinel.
func (n *Node) IsRoot() bool { return n.parent == RootParent }

// Children returns a copy of the child identifiers in insertion order.
func (n *Node) Children() []string { return slices.Clone(n.children) }

// SetValue replaces the value. Deleted nodes are left unchanged.
func (n *Node) SetValue(v string) {
	if n.deleted {
		return
	}
	n.value = v
}

// SetName replaces the name, falling back to the default name when v is empty.
func (n *Node) SetName(v string) {
	if v == "" {
		v = DefaultNamePrefix + n.id
	}
	n.name = v
}

// AddChild appends id to the children unless it is already present.
func (n *Node) AddChild(id string) {
	if slices.Contains(n.children, id) {
		return
	}
	n.children = append(n.children, id)
}

// MarkDeleted sets the tombstone. Idempotent.
func (n *Node) MarkDeleted() {
	n.deleted = true
}

// RecordOption adjusts a record produced by ToRecord.
type RecordOption func(*Record)

// WithID re-homes the record under a different identifier.
func WithID(id string) RecordOption {
	return func(r *Record) { r.ID = id }
}

// WithParent re-homes the record under a different parent.
func WithParent(parent string) RecordOption {
	return func(r *Record) { r.Parent = parent }
}

// ToRecord serializes the node. Without children the record carries an empty
// children list, so a destination store recomputes relationships itself.
func (n *Node) ToRecord(includeChildren bool, opts ...RecordOption) Record {
	rec := Record{
		ID:       n.id,
		Parent:   n.parent,
		Name:     n.name,
		Value:    n.value,
		Deleted:  n.deleted,
		Children: []string{},
	}
	if includeChildren {
		rec.Children = n.children
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec.Clone()
}

// Duplicate returns a field-identical copy with no children.
func (n *Node) Duplicate() *Node {
	return NewNode(n.ToRecord(false))
}
