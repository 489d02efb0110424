package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/clarityfilter/internal/settings"
)

// FileName is the database file name inside the data directory.
const FileName = "clarityfilter.db"

// DB provides SQLite-based storage for settings, scan history and pages.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// keepRevisions is the number of settings revisions kept.
	keepRevisions int

	mu      sync.Mutex
	subs    map[int]func(settings.Settings)
	nextSub int

	// notifyMu serializes notifications; lastSeen is the newest revision
	// subscribers were told about.
	notifyMu sync.Mutex
	lastSeen int64
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool

	// KeepRevisions is the number of settings revisions kept. Older ones
	// are deleted on save. Zero keeps the default of 50.
	KeepRevisions int
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		KeepRevisions:     50,
	}
}

// Open opens or creates the database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite takes the open mode in the DSN: rw refuses to
	// create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	keep := opts.KeepRevisions
	if keep <= 0 {
		keep = DefaultOptions().KeepRevisions
	}
	d := &DB{
		db:            db,
		dbPath:        dbPath,
		keepRevisions: keep,
		subs:          make(map[int]func(settings.Settings)),
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (d *DB) createTables() error {
	schema := `
	-- Settings snapshots, newest revision wins
	CREATE TABLE IF NOT EXISTS settings (
		revision INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	-- Scan history
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		host TEXT,
		mode TEXT,
		scan_trigger TEXT,
		newly INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 0,
		skipped TEXT,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_host ON scans(host);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	-- Fetched pages
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		status_code INTEGER,
		content_type TEXT,
		raw_hash TEXT,
		size INTEGER,
		truncated INTEGER NOT NULL DEFAULT 0,
		timestamp TEXT NOT NULL
	);
	`

	_, err := d.db.ExecContext(context.Background(), schema)
	return err
}

// timestampFormats lists the formats timestamps may be stored in.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",     // SQLite CURRENT_TIMESTAMP
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
