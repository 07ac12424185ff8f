// Package ledger keeps a durable record of every embedding a tool
// performs: which manifest went into which asset, under which key
// algorithm, bound to which content digest. The ledger is append-only
// and survives across runs, so `history` can answer questions the
// asset alone cannot (e.g. every path a manifest was ever written to).
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on embeddings.parent_instance_id
const currentSchemaVersion = 1

// Ledger provides durable storage for embedding records.
// Uses SQLite with WAL mode for concurrent read access.
type Ledger struct {
	db *sql.DB
}

// Entry is one recorded embedding. ID is assigned by the database;
// leave it zero when recording.
type Entry struct {
	ID               int64
	ManifestLabel    string
	InstanceID       string
	AssetPath        string
	Title            string
	Format           string
	ClaimGenerator   string
	Algorithm        string
	ContentDigest    string
	ParentInstanceID string
	RecordedAt       time.Time
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends an embedding entry. Uses ON CONFLICT(manifest_label)
// DO NOTHING for idempotency - a manifest label is minted once, so a
// re-run recording the same embedding is silently ignored. Returns
// whether a new row was inserted.
func (l *Ledger) Record(ctx context.Context, e Entry) (inserted bool, err error) {
	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO embeddings
		(manifest_label, instance_id, asset_path, title, format,
		 claim_generator, algorithm, content_digest, parent_instance_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(manifest_label) DO NOTHING
	`,
		e.ManifestLabel,
		e.InstanceID,
		e.AssetPath,
		e.Title,
		e.Format,
		e.ClaimGenerator,
		e.Algorithm,
		e.ContentDigest,
		e.ParentInstanceID,
		recordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("record embedding: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record embedding: %w", err)
	}
	return n > 0, nil
}

// ByAsset returns every embedding ever recorded against an asset path,
// oldest first. Returns an empty slice (not nil) when none exist.
func (l *Ledger) ByAsset(ctx context.Context, assetPath string) ([]Entry, error) {
	return l.query(ctx, `
		SELECT id, manifest_label, instance_id, asset_path, title, format,
		       claim_generator, algorithm, content_digest, parent_instance_id, recorded_at
		FROM embeddings
		WHERE asset_path = ?
		ORDER BY id ASC
	`, assetPath)
}

// ByInstance returns every embedding recorded for a manifest instance
// ID, oldest first.
func (l *Ledger) ByInstance(ctx context.Context, instanceID string) ([]Entry, error) {
	return l.query(ctx, `
		SELECT id, manifest_label, instance_id, asset_path, title, format,
		       claim_generator, algorithm, content_digest, parent_instance_id, recorded_at
		FROM embeddings
		WHERE instance_id = ?
		ORDER BY id ASC
	`, instanceID)
}

// All returns the full ledger, oldest first.
func (l *Ledger) All(ctx context.Context) ([]Entry, error) {
	return l.query(ctx, `
		SELECT id, manifest_label, instance_id, asset_path, title, format,
		       claim_generator, algorithm, content_digest, parent_instance_id, recorded_at
		FROM embeddings
		ORDER BY id ASC
	`)
}

// Count returns the number of recorded embeddings.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

func (l *Ledger) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var recordedAt string
		if err := rows.Scan(
			&e.ID, &e.ManifestLabel, &e.InstanceID, &e.AssetPath,
			&e.Title, &e.Format, &e.ClaimGenerator, &e.Algorithm,
			&e.ContentDigest, &e.ParentInstanceID, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: bad recorded_at %q: %w", recordedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return entries, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the parent index for databases created before the
// chain lookups existed. CREATE INDEX IF NOT EXISTS is a no-op on new
// databases.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_embeddings_parent
		ON embeddings(parent_instance_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (l *Ledger) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := l.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
