// Package store persists the contact link table and the incremental sync
// cursor in a local SQLite database.
//
// The database runs embedded with WAL journaling and full synchronous
// writes: every mutation commits durably before the call returns, so a
// crash between two contacts loses at most the contact in flight. The
// engine is strictly serial, which keeps the store single-writer; one
// pooled connection is enough and sidesteps SQLITE_BUSY entirely.
//
// Uniqueness of both link columns is enforced twice: explicit checks
// inside the upsert transaction produce typed ConstraintErrors, and the
// UNIQUE constraints in the schema backstop them. The links table has no
// ON CONFLICT clauses on purpose: a collision must surface, never
// silently rebind a pair.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/concordsync/concord/pkg/constants"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapping"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schemaVersion is stamped into PRAGMA user_version on first init.
const schemaVersion = 1

// Store implements mapping.Store on an embedded SQLite database.
type Store struct {
	conn *sql.DB
	path string
}

// Compile-time check that Store satisfies the mapping.Store contract.
var _ mapping.Store = (*Store)(nil)

// Open opens (or creates) the database at path and initializes the schema.
// The caller must Close the store when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapStore("open", path, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, errors.WrapStore("open", path, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, errors.WrapStore("open", path, err)
	}

	// Serial engine, one connection is enough.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: path}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=FULL",
	}
	for _, pragma := range pragmas {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, errors.WrapStore("open", pragma, err)
		}
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and releases the database handle.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to checkpoint WAL: %v\n", err)
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return errors.WrapStore("close", s.path, err)
	}
	return nil
}

// initSchema creates the tables if they do not exist. Idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errors.WrapStore("init", "user_version", err)
	}
	if version > schemaVersion {
		return errors.WrapStore("init", s.path,
			fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion))
	}

	schema := `
	CREATE TABLE IF NOT EXISTS links (
		source_id      TEXT NOT NULL UNIQUE,
		target_id      TEXT NOT NULL UNIQUE,
		source_name    TEXT NOT NULL DEFAULT '',
		target_name    TEXT NOT NULL DEFAULT '',
		source_updated TEXT,
		target_updated TEXT
	);

	CREATE TABLE IF NOT EXISTS cursor (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		token      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return errors.WrapStore("init", s.path, err)
	}

	if version < schemaVersion {
		if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return errors.WrapStore("init", "user_version", err)
		}
	}
	return nil
}

// LookupBySource returns the record bound to a source id, or nil when the
// id is unmapped.
func (s *Store) LookupBySource(ctx context.Context, sourceID string) (*mapping.Record, error) {
	return s.lookup(ctx, "source_id", sourceID)
}

// LookupByTarget returns the record bound to a target id, or nil when the
// id is unmapped.
func (s *Store) LookupByTarget(ctx context.Context, targetID string) (*mapping.Record, error) {
	return s.lookup(ctx, "target_id", targetID)
}

func (s *Store) lookup(ctx context.Context, column, id string) (*mapping.Record, error) {
	query := fmt.Sprintf(`
	SELECT source_id, target_id, source_name, target_name, source_updated, target_updated
	FROM links WHERE %s = ?`, column)

	record, err := scanRecord(s.conn.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("lookup", id, err)
	}
	return record, nil
}

// Upsert inserts a new record or refreshes the names and timestamps of an
// existing pair. Binding a source or target id that already belongs to a
// different partner fails with a ConstraintError.
func (s *Store) Upsert(ctx context.Context, record mapping.Record) error {
	if record.SourceID == "" || record.TargetID == "" {
		return errors.NewConstraintError(record.SourceID, record.TargetID, "both ids are required")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("upsert", record.SourceID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var boundTarget string
	err = tx.QueryRowContext(ctx, "SELECT target_id FROM links WHERE source_id = ?", record.SourceID).Scan(&boundTarget)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		// New source id; make sure the target id is free too.
		var boundSource string
		err = tx.QueryRowContext(ctx, "SELECT source_id FROM links WHERE target_id = ?", record.TargetID).Scan(&boundSource)
		if err == nil {
			return errors.NewConstraintError(record.SourceID, record.TargetID,
				fmt.Sprintf("target already bound to source %q", boundSource))
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return errors.WrapStore("upsert", record.TargetID, err)
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO links (source_id, target_id, source_name, target_name, source_updated, target_updated)
		VALUES (?, ?, ?, ?, ?, ?)`,
			record.SourceID,
			record.TargetID,
			record.SourceName,
			record.TargetName,
			timeToNullString(record.SourceUpdated),
			timeToNullString(record.TargetUpdated),
		)
		if err != nil {
			return errors.WrapStore("upsert", record.SourceID, err)
		}

	case err != nil:
		return errors.WrapStore("upsert", record.SourceID, err)

	case boundTarget != record.TargetID:
		return errors.NewConstraintError(record.SourceID, record.TargetID,
			fmt.Sprintf("source already bound to target %q", boundTarget))

	default:
		_, err = tx.ExecContext(ctx, `
		UPDATE links SET source_name = ?, target_name = ?, source_updated = ?, target_updated = ?
		WHERE source_id = ?`,
			record.SourceName,
			record.TargetName,
			timeToNullString(record.SourceUpdated),
			timeToNullString(record.TargetUpdated),
			record.SourceID,
		)
		if err != nil {
			return errors.WrapStore("upsert", record.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapStore("upsert", record.SourceID, err)
	}
	return nil
}

// RemoveBySource deletes the record bound to a source id. Idempotent.
func (s *Store) RemoveBySource(ctx context.Context, sourceID string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM links WHERE source_id = ?", sourceID); err != nil {
		return errors.WrapStore("remove", sourceID, err)
	}
	return nil
}

// RemoveByTarget deletes the record bound to a target id. Idempotent.
func (s *Store) RemoveByTarget(ctx context.Context, targetID string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM links WHERE target_id = ?", targetID); err != nil {
		return errors.WrapStore("remove", targetID, err)
	}
	return nil
}

// All returns a snapshot of every record ordered by source id.
func (s *Store) All(ctx context.Context) ([]mapping.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT source_id, target_id, source_name, target_name, source_updated, target_updated
	FROM links ORDER BY source_id`)
	if err != nil {
		return nil, errors.WrapStore("all", "", err)
	}
	defer rows.Close()

	var records []mapping.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.WrapStore("all", "", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("all", "", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		return 0, errors.WrapStore("count", "", err)
	}
	return count, nil
}

// Cursor returns the stored sync cursor, or nil when none is stored.
func (s *Store) Cursor(ctx context.Context) (*mapping.Cursor, error) {
	var token, updatedAt string
	err := s.conn.QueryRowContext(ctx, "SELECT token, updated_at FROM cursor WHERE id = 1").Scan(&token, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("cursor", "", err)
	}

	cursor := &mapping.Cursor{Token: token}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		cursor.UpdatedAt = t
	}
	return cursor, nil
}

// SetCursor replaces the cursor row in a single transaction.
func (s *Store) SetCursor(ctx context.Context, cursor mapping.Cursor) error {
	if cursor.Token == "" {
		return errors.WrapStore("cursor", "", fmt.Errorf("cursor token must not be empty"))
	}
	if cursor.UpdatedAt.IsZero() {
		cursor.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("cursor", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cursor"); err != nil {
		return errors.WrapStore("cursor", "", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO cursor (id, token, updated_at) VALUES (1, ?, ?)",
		cursor.Token, cursor.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return errors.WrapStore("cursor", "", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapStore("cursor", "", err)
	}
	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one links row.
func scanRecord(row rowScanner) (*mapping.Record, error) {
	var record mapping.Record
	var sourceUpdated, targetUpdated sql.NullString

	err := row.Scan(
		&record.SourceID,
		&record.TargetID,
		&record.SourceName,
		&record.TargetName,
		&sourceUpdated,
		&targetUpdated,
	)
	if err != nil {
		return nil, err
	}

	record.SourceUpdated = nullStringToTime(sourceUpdated)
	record.TargetUpdated = nullStringToTime(targetUpdated)
	return &record, nil
}

// timeToNullString converts a timestamp to a nullable RFC3339Nano UTC
// string; the zero time maps to NULL.
func timeToNullString(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// nullStringToTime parses a nullable timestamp column; NULL and malformed
// values map to the zero time.
func nullStringToTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
