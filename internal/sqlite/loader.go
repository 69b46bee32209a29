// This file implements JSONL loading for startup.

package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// loadAllJSONL reads the store and commit files from dataDir into SQLite.
// Loading is transactional: all succeed or the database remains empty. A
// missing store file means the store was never saved. Malformed lines and
// records that violate constraints are skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range types.StandardStoreNames {
		file := storeFiles[name]
		records, err := readJSONL(filepath.Join(dataDir, file))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		if err := insertNodes(tx, name, records); err != nil {
			return fmt.Errorf("loading %s into nodes: %w", file, err)
		}
	}

	commits, err := readJSONL(filepath.Join(dataDir, commitsJSONL))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", commitsJSONL, err)
	}
	if err := insertCommits(tx, commits); err != nil {
		return fmt.Errorf("loading %s into commits: %w", commitsJSONL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertNodes marks store as saved and inserts its records in file order.
func insertNodes(tx *sql.Tx, store string, lines []json.RawMessage) error {
	if _, err := tx.Exec(
		upsertStoreSQL,
		store, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("registering store %s: %w", store, err)
	}

	stmt, err := tx.Prepare(insertNodeSQL)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for _, line := range lines {
		var n nodeJSON
		if err := json.Unmarshal(line, &n); err != nil || n.NodeID == "" {
			continue
		}
		if err := execInsertNode(stmt, store, position, n); err != nil {
			continue
		}
		position++
	}
	return nil
}

func insertCommits(tx *sql.Tx, lines []json.RawMessage) error {
	if len(lines) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(insertCommitSQL)
	if err != nil {
		return fmt.Errorf("preparing commit insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		var c commitJSON
		if err := json.Unmarshal(line, &c); err != nil || c.CommitID == "" {
			continue
		}
		if _, err := c.entry(); err != nil {
			continue
		}
		if _, err := stmt.Exec(c.CommitID, c.CreatedAt, c.Transferred, c.RemoteSize, c.Tombstones); err != nil {
			continue
		}
	}
	return nil
}
