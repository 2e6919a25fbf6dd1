package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	db   *sql.DB
	once sync.Once
)

type Config struct {
	Path string
}

func Init(cfg Config) error {
	var initErr error
	once.Do(func() {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if initErr = os.MkdirAll(dir, 0o755); initErr != nil {
				return
			}
		}
		db, initErr = sql.Open("sqlite3", cfg.Path)
		if initErr != nil {
			return
		}
		// Single connection: sqlite serializes writers anyway, and it makes
		// each job mutation a self-contained atomic statement.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		initErr = createSchema(db)
	})
	return initErr
}

// InitForTest opens an isolated database, bypassing the process-wide
// singleton so test instances do not share state.
func InitForTest(path string) (*sql.DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(1)
	d.SetMaxIdleConns(1)
	if err := createSchema(d); err != nil {
		d.Close()
		return nil, err
	}
	db = d
	return d, nil
}

func GetDB() *sql.DB {
	return db
}

func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS printer_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			ip TEXT NOT NULL,
			port INTEGER NOT NULL DEFAULT 9100,
			paper_width_mm INTEGER NOT NULL DEFAULT 80,
			text_encoding TEXT NOT NULL DEFAULT 'cp437',
			code_page INTEGER NOT NULL DEFAULT 0,
			cut_mode TEXT NOT NULL DEFAULT 'partial',
			drawer_kick INTEGER NOT NULL DEFAULT 0,
			bitmap_fallback INTEGER NOT NULL DEFAULT 0,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS print_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT,
			type TEXT NOT NULL DEFAULT 'receipt',
			payload_json TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 3,
			last_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_attempt_at DATETIME,
			next_attempt_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_print_jobs_status ON print_jobs(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
