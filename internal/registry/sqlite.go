package registry

import (
	"database/sql"
	"errors"
	"fmt"

	"sdcli/internal/bridge"
	"sdcli/internal/model"
	"sdcli/internal/registry/migrations"

	"github.com/mattn/go-sqlite3"
)

// SQLiteRegistry implements the bridge.Registry interface using SQLite. All
// writes go through implicit transactions with synchronous=FULL, so a mutation
// is on disk before the call returns and readers never observe a partial
// record.
type SQLiteRegistry struct {
	db   *sql.DB
	path string
}

var _ bridge.Registry = (*SQLiteRegistry)(nil)

// NewSQLiteRegistry opens (creating if needed) the registry at path and
// migrates its schema to the latest version.
// path can be a file path or ":memory:" for an in-memory registry.
func NewSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, &bridge.StorageError{Store: "registry", Op: "migrate", Err: err}
	}

	return &SQLiteRegistry{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection without migrations.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &bridge.StorageError{Store: "registry", Op: "open", Err: err}
	}

	// Durability first: a crash between "process started" and "record
	// persisted" must be detectable by the next invocation, so every
	// commit has to reach disk before Put returns.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &bridge.StorageError{Store: "registry", Op: "configure", Err: err}
		}
	}

	return db, nil
}

const recordColumns = `fingerprint, bucket, credential_ref, listen_host, listen_port,
	status, supervisor_handle, cleanup_pending, created_at, last_transition_at`

func (r *SQLiteRegistry) Get(fingerprint string) (*model.BridgeRecord, error) {
	row := r.db.QueryRow(
		`SELECT `+recordColumns+` FROM bridges WHERE fingerprint = ?`, fingerprint)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, &bridge.StorageError{Store: "registry", Op: "get", Err: err}
	}
	return record, nil
}

func (r *SQLiteRegistry) Put(record *model.BridgeRecord) error {
	if !record.Status.Valid() {
		return &bridge.StorageError{Store: "registry", Op: "put",
			Err: fmt.Errorf("invalid status %q", record.Status)}
	}

	_, err := r.db.Exec(`
		INSERT INTO bridges (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			bucket             = excluded.bucket,
			credential_ref     = excluded.credential_ref,
			listen_host        = excluded.listen_host,
			listen_port        = excluded.listen_port,
			status             = excluded.status,
			supervisor_handle  = excluded.supervisor_handle,
			cleanup_pending    = excluded.cleanup_pending,
			last_transition_at = excluded.last_transition_at`,
		record.Fingerprint, record.Bucket, record.CredentialRef,
		record.ListenHost, record.ListenPort, string(record.Status),
		record.SupervisorHandle, record.CleanupPending,
		record.CreatedAt, record.LastTransitionAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("endpoint %s: %w", record.Endpoint(), bridge.ErrEndpointConflict)
		}
		return &bridge.StorageError{Store: "registry", Op: "put", Err: err}
	}
	return nil
}

func (r *SQLiteRegistry) Delete(fingerprint string) error {
	if _, err := r.db.Exec(`DELETE FROM bridges WHERE fingerprint = ?`, fingerprint); err != nil {
		return &bridge.StorageError{Store: "registry", Op: "delete", Err: err}
	}
	return nil
}

func (r *SQLiteRegistry) List() ([]*model.BridgeRecord, error) {
	rows, err := r.db.Query(`SELECT ` + recordColumns + ` FROM bridges ORDER BY created_at, fingerprint`)
	if err != nil {
		return nil, &bridge.StorageError{Store: "registry", Op: "list", Err: err}
	}
	defer rows.Close()

	var records []*model.BridgeRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &bridge.StorageError{Store: "registry", Op: "list", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &bridge.StorageError{Store: "registry", Op: "list", Err: err}
	}
	return records, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.BridgeRecord, error) {
	var record model.BridgeRecord
	var status string
	err := s.Scan(&record.Fingerprint, &record.Bucket, &record.CredentialRef,
		&record.ListenHost, &record.ListenPort, &status,
		&record.SupervisorHandle, &record.CleanupPending,
		&record.CreatedAt, &record.LastTransitionAt)
	if err != nil {
		return nil, err
	}
	record.Status = model.BridgeStatus(status)
	if !record.Status.Valid() {
		return nil, fmt.Errorf("record %s has unknown status %q", record.Fingerprint, status)
	}
	return &record, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure, which for the bridges table means an endpoint claim collision
// (fingerprint conflicts are resolved by the upsert).
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}
