// Package sqlite implements a persistent SQLite-backed counter store for
// the stats interfaces. It uses modernc.org/sqlite (pure Go, no CGO) with
// WAL mode and per-day aggregation, so nothing message-shaped ever lands
// on disk.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/stats"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ stats.Recorder    = (*counterStore)(nil)
	_ stats.Reader      = (*counterStore)(nil)
	_ stats.Pruner      = (*counterStore)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module implements a SQLite-backed stats store providing the Recorder,
// Reader, and Pruner interfaces backed by a single database.
type Module struct {
	config   Config
	db       *sql.DB
	logger   *slog.Logger
	counters *counterStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := openDB(m.config.Path, m.config.walEnabled(), m.config.BusyTimeout)
	if err != nil {
		return err
	}

	m.db = db
	m.counters = &counterStore{db: db}

	ctx.RegisterService("stats.recorder", m.counters)
	ctx.RegisterService("stats.reader", m.counters)
	ctx.RegisterService("stats.pruner", m.counters)

	m.logger.Info("sqlite stats store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}

	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}

	var n int
	if err := m.db.QueryRowContext(context.TODO(), "SELECT count(*) FROM counters").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: counters table not available: %w", err)
	}

	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite stats store stopping")
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Recorder returns the stats.Recorder implementation.
func (m *Module) Recorder() stats.Recorder {
	return m.counters
}

// Reader returns the stats.Reader implementation.
func (m *Module) Reader() stats.Reader {
	return m.counters
}

// Pruner returns the stats.Pruner implementation.
func (m *Module) Pruner() stats.Pruner {
	return m.counters
}

// openDB opens the database file, applies PRAGMAs, and migrates the schema.
func openDB(path string, wal bool, busyTimeout int) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if wal {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenCounterStore opens a SQLite database at the given path and returns a
// read-capable counter store backed by it. The caller is responsible for
// closing the returned *sql.DB when done. The CLI stats command uses it to
// inspect counters without booting the app.
func OpenCounterStore(path string) (stats.Reader, *sql.DB, error) {
	db, err := openDB(path, true, defaultBusyTimeout)
	if err != nil {
		return nil, nil, err
	}
	return &counterStore{db: db}, db, nil
}
