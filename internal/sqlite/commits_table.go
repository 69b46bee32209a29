// This file implements the commit journal on the commits table.

package sqlite

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

const insertCommitSQL = `INSERT INTO commits
    (commit_id, created_at, transferred, remote_size, tombstones)
    VALUES (?, ?, ?, ?, ?)`

// AppendCommit records entry and rewrites commits.jsonl.
func (b *Backend) AppendCommit(entry types.CommitEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrWorkspaceDetached
	}

	c := commitFromEntry(entry)
	if _, err := b.db.Exec(insertCommitSQL, c.CommitID, c.CreatedAt, c.Transferred, c.RemoteSize, c.Tombstones); err != nil {
		return fmt.Errorf("inserting commit %s: %w", c.CommitID, err)
	}
	b.logger.Debug("journaled commit", zap.String("commit_id", c.CommitID))

	if b.shouldPersistImmediately() {
		if err := b.persistCommitsJSONL(); err != nil {
			return fmt.Errorf("persisting %s: %w", commitsJSONL, err)
		}
		return nil
	}
	b.queueWrite(commitsJSONL, "append", b.persistCommitsJSONL)
	return nil
}

// Commits returns the journal, oldest first.
func (b *Backend) Commits() ([]types.CommitEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWorkspaceDetached
	}

	rows, err := b.queryCommits()
	if err != nil {
		return nil, err
	}
	out := make([]types.CommitEntry, 0, len(rows))
	for _, c := range rows {
		e, err := c.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Backend) queryCommits() ([]commitJSON, error) {
	rows, err := b.db.Query(
		"SELECT commit_id, created_at, transferred, remote_size, tombstones FROM commits ORDER BY created_at ASC, commit_id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying commits: %w", err)
	}
	defer rows.Close()

	var out []commitJSON
	for rows.Next() {
		var c commitJSON
		if err := rows.Scan(&c.CommitID, &c.CreatedAt, &c.Transferred, &c.RemoteSize, &c.Tombstones); err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commits: %w", err)
	}
	return out, nil
}

func (b *Backend) persistCommitsJSONL() error {
	rows, err := b.queryCommits()
	if err != nil {
		return err
	}
	lines, err := marshalLines(rows)
	if err != nil {
		return err
	}
	return writeJSONL(b.path(commitsJSONL), lines)
}
