package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tension-cli/internal/persist"
)

const (
	workspaceDirName = ".tension"
	sqliteFileName   = "tension.sqlite"
)

// Store is a workspace directory holding the SQLite database.
type Store struct {
	Dir string
}

func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, workspaceDirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir finds the nearest .tension directory above the working directory,
// or proposes one in it.
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return filepath.Join(cwd, workspaceDirName), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

// Path is the database file inside the workspace.
func (s Store) Path() string { return s.sqlitePath() }

// Exists reports whether the workspace database has been created.
func (s Store) Exists() bool {
	_, err := os.Stat(s.sqlitePath())
	return err == nil
}

// DB is an open workspace database. It implements persist.Persister.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

var _ persist.Persister = (*DB)(nil)

// Open opens (creating when needed) the workspace database and migrates it.
func (s Store) Open(ctx context.Context) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	return &DB{db: db, now: time.Now}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// Pragmas below are per connection, so keep a single one.
	db.SetMaxOpenConns(1)
	// WAL enables one writer + many readers; busy_timeout helps avoid "database is locked" flakiness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS charts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			parent_tension_id TEXT,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_charts_parent ON charts(parent_tension_id);`,
		`CREATE TABLE IF NOT EXISTS areas (
			id TEXT PRIMARY KEY,
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_areas_chart ON areas(chart_id);`,
		`CREATE TABLE IF NOT EXISTS visions (
			id TEXT PRIMARY KEY,
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			area_id TEXT,
			due_date TEXT,
			sort_order INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_visions_chart ON visions(chart_id);`,
		`CREATE TABLE IF NOT EXISTS realities (
			id TEXT PRIMARY KEY,
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			area_id TEXT,
			due_date TEXT,
			sort_order INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_realities_chart ON realities(chart_id);`,
		`CREATE TABLE IF NOT EXISTS tensions (
			id TEXT PRIMARY KEY,
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			area_id TEXT,
			sort_order INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tensions_chart ON tensions(chart_id);`,
		`CREATE TABLE IF NOT EXISTS tension_links (
			tension_id TEXT NOT NULL REFERENCES tensions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			item_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (tension_id, kind, item_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tension_links_item ON tension_links(item_id);`,
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			area_id TEXT,
			due_date TEXT,
			tension_id TEXT,
			done INTEGER NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_chart ON actions(chart_id);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_tension ON actions(tension_id);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) meta(ctx context.Context, k string) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return strings.TrimSpace(v), err
}

func (d *DB) setMeta(ctx context.Context, k, v string) error {
	_, err := d.db.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, strings.TrimSpace(v))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(p *string) any {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return strings.TrimSpace(*p)
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	v := ns.String
	return &v
}

func fromUnixMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
