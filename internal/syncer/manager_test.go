package syncer

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/treesync/internal/tree"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

func sampleRecords() []types.Record {
	return []types.Record{
		{ID: "0", Parent: types.RootParent, Name: "root", Value: "r"},
		{ID: "1", Parent: "0", Name: "a", Value: "1"},
		{ID: "2", Parent: "0", Name: "b", Value: "2"},
		{ID: "3", Parent: "1", Name: "c", Value: "3"},
	}
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return New(tree.NewRemote(sampleRecords(), nil), nil, opts...)
}

func strPtr(s string) *string { return &s }

type recordingJournal struct {
	entries []types.CommitEntry
	err     error
}

func (j *recordingJournal) AppendCommit(e types.CommitEntry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func TestManagerPull(t *testing.T) {
	m := newTestManager(t)

	exp, err := m.Pull("1")
	require.NoError(t, err)
	assert.Equal(t, types.StoreLocal, exp.Store)
	require.Contains(t, exp.Nodes, "1")
	assert.Equal(t, []string{"3"}, exp.Nodes["1"].Children, "remote children travel with the pulled node")
	assert.Equal(t, "a", exp.Nodes["1"].Name)

	_, err = m.Pull("0")
	require.NoError(t, err)
	root, err := m.Get(types.StoreLocal, "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, root.Children)

	_, err = m.Pull("99")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, m.Local().Has("99"))
}

func TestManagerAdd(t *testing.T) {
	tests := []struct {
		name      string
		pull      []string
		deleteID  string
		parent    string
		wantAdded bool
	}{
		{name: "under pulled parent", pull: []string{"1"}, parent: "1", wantAdded: true},
		{name: "under absent parent", parent: "2", wantAdded: true},
		{name: "new root", parent: "", wantAdded: true},
		{name: "under deleted parent", pull: []string{"1"}, deleteID: "1", parent: "1", wantAdded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			for _, id := range tt.pull {
				_, err := m.Pull(id)
				require.NoError(t, err)
			}
			if tt.deleteID != "" {
				m.Delete(tt.deleteID)
			}
			before := m.Local().Len()

			exp, err := m.Add(tt.parent)
			require.NoError(t, err)

			if !tt.wantAdded {
				assert.Equal(t, before, exp.Len())
				return
			}
			require.Equal(t, before+1, exp.Len())
			var added types.Record
			for id, rec := range exp.Nodes {
				if !m.Remote().Has(id) {
					added = rec
				}
			}
			wantParent := tt.parent
			if wantParent == "" {
				wantParent = types.RootParent
			}
			assert.Equal(t, wantParent, added.Parent)
			assert.Equal(t, types.DefaultNamePrefix+added.ID, added.Name)
			assert.False(t, added.Deleted)
			if parent, ok := exp.Nodes[tt.parent]; ok {
				assert.Contains(t, parent.Children, added.ID)
			}
		})
	}
}

func TestManagerAddNeverReusesIDs(t *testing.T) {
	m := newTestManager(t)
	seen := map[string]bool{"0": true, "1": true, "2": true, "3": true}
	for range 200 {
		exp, err := m.Add("")
		require.NoError(t, err)
		for id := range exp.Nodes {
			if !m.Remote().Has(id) && !seen[id] {
				seen[id] = true
			}
		}
	}
	assert.Len(t, seen, 204)
}

func TestManagerChange(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Pull("1")
	require.NoError(t, err)

	exp, err := m.Change("1", types.Edit{Name: strPtr("renamed"), Value: strPtr("v2")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", exp.Nodes["1"].Name)
	assert.Equal(t, "v2", exp.Nodes["1"].Value)

	remote, err := m.Get(types.StoreRemote, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", remote.Name, "remote is untouched until commit")

	_, err = m.Change("2", types.Edit{Name: strPtr("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestManagerDeleteThenChangeIsIgnored(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Pull("0")
	require.NoError(t, err)
	_, err = m.Pull("1")
	require.NoError(t, err)
	_, err = m.Pull("3")
	require.NoError(t, err)

	exp := m.Delete("0")
	for _, id := range []string{"0", "1", "3"} {
		assert.True(t, exp.Nodes[id].Deleted, "node %s", id)
	}

	exp, err = m.Change("1", types.Edit{Value: strPtr("ignored")})
	require.NoError(t, err)
	assert.Equal(t, "1", exp.Nodes["1"].Value)

	deleted, err := m.IsDeleted("1", types.StoreLocal)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = m.IsDeleted("1", types.StoreRemote)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestManagerCommit(t *testing.T) {
	journal := &recordingJournal{}
	m := newTestManager(t, WithJournal(journal))

	_, err := m.Pull("1")
	require.NoError(t, err)
	_, err = m.Change("1", types.Edit{Value: strPtr("changed")})
	require.NoError(t, err)
	added, err := m.Add("1")
	require.NoError(t, err)
	var newID string
	for id := range added.Nodes {
		if id != "1" {
			newID = id
		}
	}
	require.NotEmpty(t, newID)

	exp, err := m.Commit()
	require.NoError(t, err)
	assert.Equal(t, types.StoreRemote, exp.Store)
	assert.Equal(t, 5, exp.Len())
	assert.Equal(t, "changed", exp.Nodes["1"].Value)
	assert.ElementsMatch(t, []string{"3", newID}, exp.Nodes["1"].Children)
	assert.Equal(t, "1", exp.Nodes[newID].Parent)

	local, err := m.Get(types.StoreLocal, "1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"3", newID}, local.Children, "local is refreshed from remote")

	require.Len(t, journal.entries, 1)
	entry := journal.entries[0]
	assert.NotEmpty(t, entry.CommitID)
	assert.Equal(t, 2, entry.Transferred)
	assert.Equal(t, 5, entry.RemoteSize)
	assert.Zero(t, entry.Tombstones)
}

func TestManagerCommitDeletesCascadeInRemote(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []string{"1", "3"} {
		_, err := m.Pull(id)
		require.NoError(t, err)
	}
	m.Delete("1")

	exp, err := m.Commit()
	require.NoError(t, err)
	assert.True(t, exp.Nodes["1"].Deleted)
	assert.True(t, exp.Nodes["3"].Deleted, "remote descendants inherit the tombstone")
	assert.False(t, exp.Nodes["0"].Deleted)
	assert.False(t, exp.Nodes["2"].Deleted)

	for _, id := range []string{"1", "3"} {
		rec, err := m.Get(types.StoreLocal, id)
		require.NoError(t, err)
		assert.True(t, rec.Deleted, "local %s reconciled from remote", id)
		assert.Equal(t, exp.Nodes[id], rec, "local %s matches remote", id)
	}
}

func TestManagerCommitJournalFailureLeavesRemoteUntouched(t *testing.T) {
	journal := &recordingJournal{err: errors.New("disk full")}
	m := newTestManager(t, WithJournal(journal))
	before, err := m.Export(types.StoreRemote)
	require.NoError(t, err)

	_, err = m.Pull("1")
	require.NoError(t, err)
	m.Delete("1")

	_, err = m.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	after, err := m.Export(types.StoreRemote)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestManagerResetAndBootstrap(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Pull("0")
	require.NoError(t, err)

	m.Reset()
	assert.Zero(t, m.Remote().Len())
	assert.Zero(t, m.Local().Len())

	exp := m.Bootstrap(sampleRecords())
	assert.Equal(t, 4, exp.Len())
	assert.Equal(t, []string{"1", "2"}, exp.Nodes["0"].Children)
}

func TestManagerUnknownStore(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Export("elsewhere")
	assert.ErrorIs(t, err, types.ErrUnknownStore)
	_, err = m.IsDeleted("0", "elsewhere")
	assert.ErrorIs(t, err, types.ErrUnknownStore)
	_, err = m.Get("elsewhere", "0")
	assert.ErrorIs(t, err, types.ErrUnknownStore)
	_, err = m.IsDeleted("42", types.StoreRemote)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
