package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

func TestWriteJSONLAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.jsonl")

	lines := []json.RawMessage{
		json.RawMessage(`{"key":"value1"}`),
		json.RawMessage(`{"key":"value2"}`),
	}
	require.NoError(t, writeJSONL(path, lines))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"key\":\"value1\"}\n{\"key\":\"value2\"}\n", string(content))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file renamed away")
}

func TestReadJSONLSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	content := `{"node_id":"1"}

not json
{"node_id":"2"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"node_id":"2"}`, string(lines[1]))
}

func TestReadJSONLMissingFile(t *testing.T) {
	_, err := readJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreJSONLIsOneRecordPerLine(t *testing.T) {
	tmpDir := t.TempDir()
	b := attach(t, tmpDir, "")
	defer b.Detach()

	require.NoError(t, b.SaveStore(types.StoreLocal, sampleRecords()))

	data, err := os.ReadFile(filepath.Join(tmpDir, localJSONL))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t,
		`{"node_id":"5","parent":"0","name":"later","value":"x","deleted":false,"children":[]}`,
		lines[0])
}

func TestStoreFile(t *testing.T) {
	file, err := storeFile(types.StoreRemote)
	require.NoError(t, err)
	assert.Equal(t, remoteJSONL, file)

	_, err = storeFile("nope")
	assert.ErrorIs(t, err, types.ErrUnknownStore)
}
