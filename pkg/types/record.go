package types

import "github.com/jinzhu/copier"

// Record is the plain value form of a Node. It is what stores hand out, what
// crosses the boundary between stores, and what backends persist.
type Record struct {
	ID       string   `json:"id"`
	Parent   string   `json:"parent"`
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Deleted  bool     `json:"deleted"`
	Children []string `json:"children"`
}

// Clone returns a deep copy of the record. Children is never nil in the
// result.
func (r Record) Clone() Record {
	var out Record
	// Same-type struct copies do not fail.
	_ = copier.CopyWithOption(&out, &r, copier.Option{DeepCopy: true})
	if out.Children == nil {
		out.Children = []string{}
	}
	return out
}

// Edit carries an optional name and value for ChangeVolatile. Nil fields are
// left untouched.
type Edit struct {
	Name  *string
	Value *string
}

// Store names used by the sync manager and the workspace backends.
const (
	StoreLocal  = "local"
	StoreRemote = "remote"
)

// StandardStoreNames lists the store names in persistence order.
var StandardStoreNames = []string{
	StoreRemote,
	StoreLocal,
}

// Export is the materialized view of one store returned to the presentation
// layer after every manager operation.
type Export struct {
	Store string            `json:"store"`
	Nodes map[string]Record `json:"nodes"`
}

// Len returns the number of exported records.
func (e Export) Len() int { return len(e.Nodes) }
