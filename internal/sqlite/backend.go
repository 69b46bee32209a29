// Package sqlite implements the SQLite workspace backend. JSONL files in the
// data directory are the source of truth; SQLite is the query engine and is
// rebuilt from them on every Attach.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/treesync/internal/logging"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

// dbFile is the SQLite cache inside the data directory.
const dbFile = "treesync.db"

// Compile-time interface check.
var _ types.Workspace = (*Backend)(nil)

// Backend implements types.Workspace using SQLite as the query engine and
// JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger

	syncStrategy  string         // effective sync strategy: immediate or on_close
	pendingWrites []pendingWrite // queue of writes pending JSONL persist
	pendingMu     sync.Mutex     // protects pendingWrites
}

// pendingWrite represents a deferred JSONL write queued by the on_close
// sync strategy.
type pendingWrite struct {
	file      string
	operation string
	persist   func() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger).With(zap.String("backend", types.BackendSQLite))
	return b
}

// Attach initializes the backend with the given configuration. Creates
// DataDir if it does not exist, builds a fresh SQLite schema and loads the
// JSONL files into it. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache; always start from the JSONL files.
	dbPath := filepath.Join(config.DataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(strings.Join(append(schemaDDL, indexDDL...), "\n")); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := loadAllJSONL(db, config.DataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.syncStrategy = config.EffectiveSyncStrategy()
	b.pendingWrites = nil
	b.attached = true

	b.logger.Debug("attached",
		zap.String("data_dir", config.DataDir),
		zap.String("sync_strategy", b.syncStrategy))
	return nil
}

// Detach flushes pending writes and closes the SQLite connection. After
// Detach, all operations return ErrWorkspaceDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPendingWrites(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.logger.Debug("detached")
	return nil
}

func (b *Backend) path(file string) string {
	return filepath.Join(b.config.DataDir, file)
}

// shouldPersistImmediately reports whether JSONL writes happen at once
// rather than on Detach.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy != types.SyncOnClose
}

// queueWrite adds a write operation to the pending queue. The caller must
// hold b.mu.
func (b *Backend) queueWrite(file, operation string, persist func() error) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		file:      file,
		operation: operation,
		persist:   persist,
	})
}

// flushPendingWrites executes queued writes in order. The caller must hold
// the b.mu write lock. On failure the queue is kept so a later flush can
// retry; the next Attach reloads whatever reached disk.
func (b *Backend) flushPendingWrites() error {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	for i, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			b.pendingWrites = b.pendingWrites[i:]
			return fmt.Errorf("flush %s %s: %w", pw.file, pw.operation, err)
		}
	}
	if n := len(b.pendingWrites); n > 0 {
		b.logger.Debug("flushed pending writes", zap.Int("writes", n))
	}
	b.pendingWrites = nil
	return nil
}
