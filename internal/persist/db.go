// Package persist implements the durable substrate for Shelf: a small
// SQLite-backed key-value store holding the records blob and the user
// settings, plus the JSON import/export reconciliation logic.
package persist

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"shelf/internal/apperr"
	"shelf/internal/models"
)

// Logical keys in the vault table. Absence of a key yields the
// documented default: empty collection, light theme, cap disabled.
const (
	keyRecords = "records"
	keyDigest  = "records_digest"
	keyTheme   = "theme"
	keyPageCap = "page_cap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vault (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with vault-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// WAL and a busy timeout are appended to whatever parameters the DSN
// already carries.
func Open(dsn string) (*DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite3", dsn+sep+"_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persist: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// LoadRecords reads the records blob. A missing key yields an empty
// collection. A stored digest that no longer matches the blob is
// logged as corruption but the blob is still decoded and returned.
func (db *DB) LoadRecords() ([]models.Record, error) {
	raw, ok, err := db.get(keyRecords)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if digest, dok, _ := db.get(keyDigest); dok && digest != sum([]byte(raw)) {
		slog.Warn("persist: records digest mismatch, blob may be corrupted")
	}

	var records []models.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", apperr.ErrPersistence, err)
	}
	return records, nil
}

// SaveRecords writes the records blob and its digest in one
// transaction.
func (db *DB) SaveRecords(records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode records: %v", apperr.ErrPersistence, err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", apperr.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := setTx(tx, keyRecords, string(blob)); err != nil {
		return err
	}
	if err := setTx(tx, keyDigest, sum(blob)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// Theme returns the stored theme, defaulting to light.
func (db *DB) Theme() (string, error) {
	v, ok, err := db.get(keyTheme)
	if err != nil || !ok {
		return models.ThemeLight, err
	}
	return v, nil
}

// SetTheme stores the theme scalar.
func (db *DB) SetTheme(theme string) error {
	return db.set(keyTheme, theme)
}

// PageCap returns the stored page cap, defaulting to 0 (disabled). A
// value that does not parse as a non-negative integer also falls back
// to 0.
func (db *DB) PageCap() (int, error) {
	v, ok, err := db.get(keyPageCap)
	if err != nil || !ok {
		return 0, err
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// SetPageCap stores the page cap scalar.
func (db *DB) SetPageCap(pageCap int) error {
	return db.set(keyPageCap, strconv.Itoa(pageCap))
}

func (db *DB) get(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM vault WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %v", apperr.ErrPersistence, key, err)
	}
	return v, true, nil
}

func (db *DB) set(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO vault (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", apperr.ErrPersistence, key, err)
	}
	return nil
}

func setTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO vault (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", apperr.ErrPersistence, key, err)
	}
	return nil
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
