package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []types.Record
		wantErr error
	}{
		{
			name:  "single root",
			input: `{"1": {"parent": "None", "name": "root", "value": "v"}}`,
			want: []types.Record{
				{ID: "1", Parent: "None", Name: "root", Value: "v", Children: []string{}},
			},
		},
		{
			name:  "file order is preserved",
			input: `{"3": {"parent": "1"}, "1": {"parent": "None"}, "2": {"parent": "1"}}`,
			want: []types.Record{
				{ID: "3", Parent: "1", Children: []string{}},
				{ID: "1", Parent: "None", Children: []string{}},
				{ID: "2", Parent: "1", Children: []string{}},
			},
		},
		{
			name:  "numeric ids and parents are coerced",
			input: `{"10": {"id": 10, "parent": 4}, "4": {"id": "4"}}`,
			want: []types.Record{
				{ID: "10", Parent: "4", Children: []string{}},
				{ID: "4", Parent: "None", Children: []string{}},
			},
		},
		{
			name:  "missing and null parent become root",
			input: `{"1": {}, "2": {"parent": null}}`,
			want: []types.Record{
				{ID: "1", Parent: "None", Children: []string{}},
				{ID: "2", Parent: "None", Children: []string{}},
			},
		},
		{
			name:  "children and deleted",
			input: `{"1": {"parent": "None", "deleted": true, "children": ["7", "8"]}}`,
			want: []types.Record{
				{ID: "1", Parent: "None", Deleted: true, Children: []string{}},
			},
		},
		{
			name:  "empty object",
			input: `{}`,
			want:  nil,
		},
		{
			name:    "top level array",
			input:   `[{"id": "1"}]`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "inner id mismatch",
			input:   `{"1": {"id": "2", "parent": "None"}}`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "duplicate key",
			input:   `{"1": {"parent": "None"}, "1": {"parent": "None"}}`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "record is not an object",
			input:   `{"1": "root"}`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "deleted is not a boolean",
			input:   `{"1": {"deleted": "yes"}}`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "object parent",
			input:   `{"1": {"parent": {"id": "0"}}}`,
			wantErr: types.ErrMalformedSnapshot,
		},
		{
			name:    "self parent",
			input:   `{"1": {"parent": "1"}}`,
			wantErr: types.ErrCyclicParent,
		},
		{
			name:    "two node cycle",
			input:   `{"0": {"parent": "None"}, "1": {"parent": "2"}, "2": {"parent": "1"}}`,
			wantErr: types.ErrCyclicParent,
		},
		{
			name:    "truncated",
			input:   `{"1": {"parent": "None"}`,
			wantErr: types.ErrMalformedSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsMalformed(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrorNamesRecord(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"0": {}, "17": {"id": "18"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"17"`)
}

func TestEncodeRoundTrip(t *testing.T) {
	records := []types.Record{
		{ID: "2", Parent: "1", Name: "child", Value: "x", Children: []string{}},
		{ID: "1", Parent: "None", Name: "root", Children: []string{"2"}},
		{ID: "3", Parent: "1", Name: "gone", Deleted: true, Children: []string{}},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, records))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
	assert.Empty(t, got[1].Children, "children are recomputed by the store, not read")
	assert.True(t, got[2].Deleted)
}

func TestWriteFileAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	records := []types.Record{{ID: "1", Parent: "None", Name: "root", Value: "v", Children: []string{}}}

	require.NoError(t, WriteFile(path, records))
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
