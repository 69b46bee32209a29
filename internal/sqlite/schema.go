package sqlite

// Schema DDL. The database is a disposable query cache rebuilt from the JSONL
// files on every Attach.
const (
	createStores = `CREATE TABLE stores (
    store TEXT PRIMARY KEY,
    saved_at TEXT NOT NULL
);`

	createNodes = `CREATE TABLE nodes (
    store TEXT NOT NULL,
    node_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    parent TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    children TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (store, node_id),
    FOREIGN KEY (store) REFERENCES stores(store) ON DELETE CASCADE
);`

	createCommits = `CREATE TABLE commits (
    commit_id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    transferred INTEGER NOT NULL,
    remote_size INTEGER NOT NULL,
    tombstones INTEGER NOT NULL
);`
)

// Index DDL.
const (
	idxNodesPosition  = `CREATE INDEX idx_nodes_position ON nodes(store, position);`
	idxCommitsCreated = `CREATE INDEX idx_commits_created ON commits(created_at);`
	idxNodesDeleted   = `CREATE INDEX idx_nodes_deleted ON nodes(store, deleted);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createStores,
	createNodes,
	createCommits,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxNodesPosition,
	idxCommitsCreated,
	idxNodesDeleted,
}
