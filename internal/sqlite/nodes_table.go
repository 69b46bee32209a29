// This file implements store persistence on the nodes table.

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

const insertNodeSQL = `INSERT OR REPLACE INTO nodes
    (store, node_id, position, parent, name, value, deleted, children)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const upsertStoreSQL = `INSERT INTO stores (store, saved_at) VALUES (?, ?)
    ON CONFLICT(store) DO UPDATE SET saved_at = excluded.saved_at`

func execInsertNode(stmt *sql.Stmt, store string, position int, n nodeJSON) error {
	children, err := json.Marshal(n.Children)
	if err != nil {
		return fmt.Errorf("marshaling children of %s: %w", n.NodeID, err)
	}
	if n.Children == nil {
		children = []byte("[]")
	}
	_, err = stmt.Exec(store, n.NodeID, position, n.Parent, n.Name, n.Value, n.Deleted, string(children))
	return err
}

// LoadStore returns the records of the named store in saved order.
func (b *Backend) LoadStore(name string) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkspaceDetached
	}
	if _, err := storeFile(name); err != nil {
		return nil, err
	}

	var saved bool
	err := b.db.QueryRow("SELECT 1 FROM stores WHERE store = ?", name).Scan(&saved)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, types.ErrStoreNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking store %s: %w", name, err)
	}

	nodes, err := b.queryNodes(name)
	if err != nil {
		return nil, err
	}
	records := make([]types.Record, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, n.record())
	}
	return records, nil
}

// SaveStore replaces the named store in SQLite and then persists its JSONL
// file, immediately or on Detach depending on the sync strategy.
func (b *Backend) SaveStore(name string, records []types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrWorkspaceDetached
	}
	file, err := storeFile(name)
	if err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nodes WHERE store = ?", name); err != nil {
		return fmt.Errorf("clearing store %s: %w", name, err)
	}
	if _, err := tx.Exec(
		upsertStoreSQL,
		name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("registering store %s: %w", name, err)
	}

	stmt, err := tx.Prepare(insertNodeSQL)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer stmt.Close()
	for i, rec := range records {
		if err := execInsertNode(stmt, name, i, nodeFromRecord(rec)); err != nil {
			return fmt.Errorf("saving node %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store %s: %w", name, err)
	}
	b.logger.Debug("saved store", zap.String("store", name), zap.Int("nodes", len(records)))

	persist := func() error { return b.persistStoreJSONL(name, file) }
	if b.shouldPersistImmediately() {
		if err := persist(); err != nil {
			return fmt.Errorf("persisting %s: %w", file, err)
		}
		return nil
	}
	b.queueWrite(file, "save", persist)
	return nil
}

func (b *Backend) queryNodes(store string) ([]nodeJSON, error) {
	rows, err := b.db.Query(
		"SELECT node_id, parent, name, value, deleted, children FROM nodes WHERE store = ? ORDER BY position ASC",
		store,
	)
	if err != nil {
		return nil, fmt.Errorf("querying store %s: %w", store, err)
	}
	defer rows.Close()

	var out []nodeJSON
	for rows.Next() {
		var n nodeJSON
		var children string
		if err := rows.Scan(&n.NodeID, &n.Parent, &n.Name, &n.Value, &n.Deleted, &children); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if err := json.Unmarshal([]byte(children), &n.Children); err != nil {
			return nil, fmt.Errorf("decoding children of %s: %w", n.NodeID, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating store %s: %w", store, err)
	}
	return out, nil
}

// persistStoreJSONL reads the store back from SQLite and writes its JSONL
// file with the atomic write pattern.
func (b *Backend) persistStoreJSONL(store, file string) error {
	nodes, err := b.queryNodes(store)
	if err != nil {
		return err
	}
	lines, err := marshalLines(nodes)
	if err != nil {
		return err
	}
	return writeJSONL(b.path(file), lines)
}
