// Package snapshot reads and writes the JSON snapshot used to bootstrap the
// remote store: a single object mapping node IDs to records.
//
//	{"1": {"parent": "None", "name": "root", "value": "v"},
//	 "2": {"id": "2", "parent": "1", "deleted": true}}
//
// Records are returned in file order. IDs and parents may be strings or
// numbers. A record whose inner id disagrees with its key, a repeated key, or
// a cyclic parent chain is rejected at load time with an error naming the
// record.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// entry is the on-disk shape of one record. Scalar fields are kept raw so
// numeric and string identifiers decode alike.
type entry struct {
	ID       json.RawMessage `json:"id"`
	Parent   json.RawMessage `json:"parent"`
	Name     json.RawMessage `json:"name"`
	Value    json.RawMessage `json:"value"`
	Deleted  *bool           `json:"deleted"`
	Children json.RawMessage `json:"children"`
}

// LoadFile decodes the snapshot at path.
func LoadFile(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return records, nil
}

// Decode reads a snapshot object from r and validates it.
func Decode(r io.Reader) ([]types.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedSnapshot, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level must be an object", types.ErrMalformedSnapshot)
	}

	var records []types.Record
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedSnapshot, err)
		}
		key := tok.(string)
		if seen[key] {
			return nil, fmt.Errorf("record %q: %w: duplicate id", key, types.ErrMalformedSnapshot)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("record %q: %w: %v", key, types.ErrMalformedSnapshot, err)
		}
		rec, err := parseEntry(key, raw)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedSnapshot, err)
	}

	if err := checkCycles(records); err != nil {
		return nil, err
	}
	return records, nil
}

func parseEntry(key string, raw json.RawMessage) (types.Record, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return types.Record{}, fmt.Errorf("%w: record must be an object", types.ErrMalformedSnapshot)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrMalformedSnapshot, err)
	}

	id, ok, err := scalar(e.ID)
	if err != nil {
		return types.Record{}, fmt.Errorf("id: %w", err)
	}
	if !ok {
		id = key
	}
	if id != key {
		return types.Record{}, fmt.Errorf("%w: inner id %q does not match key", types.ErrMalformedSnapshot, id)
	}

	parent, ok, err := scalar(e.Parent)
	if err != nil {
		return types.Record{}, fmt.Errorf("parent: %w", err)
	}
	if !ok || parent == "" {
		parent = types.RootParent
	}

	name, _, err := scalar(e.Name)
	if err != nil {
		return types.Record{}, fmt.Errorf("name: %w", err)
	}
	value, _, err := scalar(e.Value)
	if err != nil {
		return types.Record{}, fmt.Errorf("value: %w", err)
	}

	rec := types.Record{
		ID:       id,
		Parent:   parent,
		Name:     name,
		Value:    value,
		Children: []string{},
	}
	if e.Deleted != nil {
		rec.Deleted = *e.Deleted
	}
	return rec, nil
}

// scalar renders a raw JSON string or number as a string. Absent and null
// values report ok=false.
func scalar(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, fmt.Errorf("%w: %v", types.ErrMalformedSnapshot, err)
		}
		return s, true, nil
	case '{', '[':
		return "", false, fmt.Errorf("%w: expected string or number", types.ErrMalformedSnapshot)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", false, fmt.Errorf("%w: expected string or number", types.ErrMalformedSnapshot)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), true, nil
	}
	return n.String(), true, nil
}

// checkCycles follows each record's parent chain through the snapshot and
// fails on the first record whose chain loops.
func checkCycles(records []types.Record) error {
	parents := make(map[string]string, len(records))
	for _, rec := range records {
		parents[rec.ID] = rec.Parent
	}
	clean := make(map[string]bool, len(records))
	for _, rec := range records {
		path := make(map[string]bool)
		for cur := rec.ID; ; {
			if clean[cur] {
				break
			}
			if path[cur] {
				return fmt.Errorf("record %q: %w", rec.ID, types.ErrCyclicParent)
			}
			path[cur] = true
			next, ok := parents[cur]
			if !ok {
				break
			}
			cur = next
		}
		for id := range path {
			clean[id] = true
		}
	}
	return nil
}

// Encode writes records as a snapshot object in the given order.
func Encode(w io.Writer, records []types.Record) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, rec := range records {
		key, err := json.Marshal(rec.ID)
		if err != nil {
			return fmt.Errorf("encoding id %q: %w", rec.ID, err)
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %q: %w", rec.ID, err)
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(records)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile encodes records to path atomically.
func WriteFile(path string, records []types.Record) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, records); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// IsMalformed reports whether err was caused by an invalid snapshot.
func IsMalformed(err error) bool {
	return errors.Is(err, types.ErrMalformedSnapshot) || errors.Is(err, types.ErrCyclicParent)
}
