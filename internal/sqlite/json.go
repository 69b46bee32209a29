package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// nodeJSON is one line of remote.jsonl or local.jsonl.
type nodeJSON struct {
	NodeID   string   `json:"node_id"`
	Parent   string   `json:"parent"`
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Deleted  bool     `json:"deleted"`
	Children []string `json:"children"`
}

func nodeFromRecord(rec types.Record) nodeJSON {
	children := rec.Children
	if children == nil {
		children = []string{}
	}
	return nodeJSON{
		NodeID:   rec.ID,
		Parent:   rec.Parent,
		Name:     rec.Name,
		Value:    rec.Value,
		Deleted:  rec.Deleted,
		Children: children,
	}
}

func (n nodeJSON) record() types.Record {
	rec := types.Record{
		ID:       n.NodeID,
		Parent:   n.Parent,
		Name:     n.Name,
		Value:    n.Value,
		Deleted:  n.Deleted,
		Children: n.Children,
	}
	return rec.Clone()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// commitJSON is one line of commits.jsonl.
type commitJSON struct {
	CommitID    string `json:"commit_id"`
	CreatedAt   string `json:"created_at"`
	Transferred int    `json:"transferred"`
	RemoteSize  int    `json:"remote_size"`
	Tombstones  int    `json:"tombstones"`
}

func commitFromEntry(e types.CommitEntry) commitJSON {
	return commitJSON{
		CommitID:    e.CommitID,
		CreatedAt:   e.CreatedAt.UTC().Format(timeLayout),
		Transferred: e.Transferred,
		RemoteSize:  e.RemoteSize,
		Tombstones:  e.Tombstones,
	}
}

func (c commitJSON) entry() (types.CommitEntry, error) {
	created, err := time.Parse(timeLayout, c.CreatedAt)
	if err != nil {
		return types.CommitEntry{}, fmt.Errorf("parsing created_at of commit %s: %w", c.CommitID, err)
	}
	return types.CommitEntry{
		CommitID:    c.CommitID,
		CreatedAt:   created,
		Transferred: c.Transferred,
		RemoteSize:  c.RemoteSize,
		Tombstones:  c.Tombstones,
	}, nil
}
