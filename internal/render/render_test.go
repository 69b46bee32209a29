package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

func sampleExport() types.Export {
	return types.Export{
		Store: types.StoreLocal,
		Nodes: map[string]types.Record{
			"0":  {ID: "0", Parent: types.RootParent, Name: "root", Value: "r", Children: []string{"10", "2"}},
			"2":  {ID: "2", Parent: "0", Name: "b", Children: []string{}},
			"10": {ID: "10", Parent: "0", Name: "a", Value: "x", Deleted: true, Children: []string{"11"}},
			"11": {ID: "11", Parent: "10", Name: "c", Deleted: true, Children: []string{}},
			"7":  {ID: "7", Parent: "99", Name: "orphan", Children: []string{}},
		},
	}
}

func TestTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, sampleExport(), Options{}))

	want := "local (5 nodes)\n" +
		"[0] root: r\n" +
		"  [10] a: x (deleted)\n" +
		"    [11] c (deleted)\n" +
		"  [2] b\n" +
		"[7] orphan\n"
	assert.Equal(t, want, buf.String())
}

func TestTreeColor(t *testing.T) {
	var plain, colored bytes.Buffer
	require.NoError(t, Tree(&plain, sampleExport(), Options{}))
	require.NoError(t, Tree(&colored, sampleExport(), Options{Color: true}))

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "[2] b\n", "live nodes are not highlighted")
}

func TestTreeEmptyAndCyclic(t *testing.T) {
	tests := []struct {
		name string
		exp  types.Export
		want string
	}{
		{
			name: "empty",
			exp:  types.Export{Store: types.StoreRemote, Nodes: map[string]types.Record{}},
			want: "remote (0 nodes)\n",
		},
		{
			name: "self parent drawn once",
			exp: types.Export{Store: types.StoreRemote, Nodes: map[string]types.Record{
				"1": {ID: "1", Parent: "1", Name: "loop", Children: []string{"1"}},
			}},
			want: "remote (1 nodes)\n[1] loop\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Tree(&buf, tt.exp, Options{}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleExport()))

	var got types.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleExport(), got)
}

func TestCompareIDs(t *testing.T) {
	assert.Negative(t, compareIDs("2", "10"))
	assert.Positive(t, compareIDs("b", "a"))
	assert.Negative(t, compareIDs("9", "a"))
	assert.Zero(t, compareIDs("3", "3"))
}
