// Package rpmdb implements the package-database collaborator named in
// spec.md §1: a persistent store of installed-package headers plus indices
// keyed by name and file-path, exposing find-by-name, get-record, add,
// remove, update-record, and find-shared-files.
//
// Storage is SQLite via modernc.org/sqlite (a pure-Go driver, registered
// under database/sql the same way quay-claircore's internal/rpm/sqlite
// package opens its read-only RPM database), with github.com/doug-martin/goqu/v8
// building the dynamic IN-list query that find-shared-files needs --
// following datastore/postgres/querybuilder.go's goqu.Dialect/goqu.Ex idiom
// from the same repo, retargeted at the sqlite3 dialect.
package rpmdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/holorpm/rpminstall/internal/header"
)

//go:embed sql/schema.sql
var schemaSQL string

// DB is a handle to the package database.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the SQLite-backed package database at
// path. Per spec.md §5, the database is not internally concurrency-safe:
// callers must not run two install operations against the same DB
// concurrently.
func Open(path string) (*DB, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"foreign_keys(1)"},
		}.Encode(),
	}
	sqlDB, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("rpmdb: open: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // enforce the single-writer invariant spec.md §5 requires
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("rpmdb: schema init: %w", err)
	}
	return &DB{sql: sqlDB}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error { return db.sql.Close() }

// Record is an installed-package header plus its database offset (spec.md
// §3: "Package header (H)", keyed by an opaque recOffset throughout §4).
type Record struct {
	Offset      int64
	Name        string
	Version     string
	Release     string
	InstallTime int64
	Header      *header.Header
}

// FindByName returns every installed record with the given package name
// (spec.md §1, "find-by-name"), used by the orchestrator's
// LOOKUP-NAME-MATCHES state.
func (db *DB) FindByName(ctx context.Context, name string) ([]Record, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT offset, name, version, release, install_time, header FROM packages WHERE name = ? ORDER BY offset`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("rpmdb: find by name: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetRecord fetches a single record by its database offset (spec.md §1,
// "get-record").
func (db *DB) GetRecord(ctx context.Context, offset int64) (*Record, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT offset, name, version, release, install_time, header FROM packages WHERE offset = ?`,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("rpmdb: get record: %w", err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("rpmdb: no record at offset %d: %w", offset, sql.ErrNoRows)
	}
	return &recs[0], nil
}

// Add inserts h as a new record, fatal on failure per spec.md §4.8 step 3.
// Returns the assigned offset.
func (db *DB) Add(ctx context.Context, h *header.Header) (int64, error) {
	name, _ := h.GetString(header.TagName)
	version, _ := h.GetString(header.TagVersion)
	release, _ := h.GetString(header.TagRelease)
	installTime, _ := h.GetInt32Array(header.TagInstallTime)
	var it int64
	if len(installTime) > 0 {
		it = int64(installTime[0])
	}

	blob, err := h.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("rpmdb: marshal header: %w", err)
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("rpmdb: add: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO packages(name, version, release, install_time, header) VALUES (?, ?, ?, ?, ?)`,
		name, version, release, it, blob,
	)
	if err != nil {
		return 0, fmt.Errorf("rpmdb: add: insert package: %w", err)
	}
	offset, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("rpmdb: add: last insert id: %w", err)
	}

	if err := insertFiles(ctx, tx, offset, h); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("rpmdb: add: commit: %w", err)
	}
	return offset, nil
}

// UpdateRecord rewrites the header and file-state rows at offset (spec.md
// §1, "update-record"; used by §4.8 step 1 to mark REPLACED files in
// another package's record).
func (db *DB) UpdateRecord(ctx context.Context, offset int64, h *header.Header) error {
	blob, err := h.MarshalBinary()
	if err != nil {
		return fmt.Errorf("rpmdb: marshal header: %w", err)
	}
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rpmdb: update: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE packages SET header = ? WHERE offset = ?`, blob, offset); err != nil {
		return fmt.Errorf("rpmdb: update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE pkg_offset = ?`, offset); err != nil {
		return fmt.Errorf("rpmdb: update: clear files: %w", err)
	}
	if err := insertFiles(ctx, tx, offset, h); err != nil {
		return err
	}
	return tx.Commit()
}

// Remove deletes the record at offset (spec.md §1, "remove"; used for the
// previous same-version record in §4.8 step 2).
func (db *DB) Remove(ctx context.Context, offset int64) error {
	_, err := db.sql.ExecContext(ctx, `DELETE FROM packages WHERE offset = ?`, offset)
	if err != nil {
		return fmt.Errorf("rpmdb: remove: %w", err)
	}
	return nil
}

// SharedFile is the shared-file record described in spec.md §3: a binding
// from an index into the caller's incoming path list to an
// (installed-package, file-index) pair sharing that path.
type SharedFile struct {
	SecRecOffset   int64
	SecFileNumber  int
	MainFileNumber int
}

// FindSharedFiles implements spec.md §1's "find-shared-files" query: given
// the incoming package's file-name list, return every (installed-package,
// file-index) pair whose path matches one of them, sorted by SecRecOffset
// so the reconciler (spec.md §4.4) can fetch each shared package's header
// once and reuse it across consecutive records.
func (db *DB) FindSharedFiles(ctx context.Context, paths []string) ([]SharedFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	pathIndex := make(map[string]int, len(paths))
	for i, p := range paths {
		pathIndex[p] = i
	}

	dialect := goqu.Dialect("sqlite3")
	anyPaths := make([]interface{}, len(paths))
	for i, p := range paths {
		anyPaths[i] = p
	}
	query, args, err := dialect.From("files").
		Select("pkg_offset", "file_number", "path").
		Where(goqu.Ex{"path": anyPaths}).
		Order(goqu.I("pkg_offset").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("rpmdb: build shared-files query: %w", err)
	}

	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rpmdb: find shared files: %w", err)
	}
	defer rows.Close()

	var out []SharedFile
	for rows.Next() {
		var offset int64
		var fileNumber int
		var path string
		if err := rows.Scan(&offset, &fileNumber, &path); err != nil {
			return nil, fmt.Errorf("rpmdb: scan shared file: %w", err)
		}
		out = append(out, SharedFile{
			SecRecOffset:   offset,
			SecFileNumber:  fileNumber,
			MainFileNumber: pathIndex[path],
		})
	}
	return out, rows.Err()
}

func insertFiles(ctx context.Context, tx *sql.Tx, offset int64, h *header.Header) error {
	paths, _ := h.GetStringArray(header.TagFileNames)
	if len(paths) == 0 {
		return nil
	}
	states, hasStates := h.GetInt32Array(header.TagFileStates)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO files(pkg_offset, file_number, path, state) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("rpmdb: prepare file insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range paths {
		state := int32(0)
		if hasStates && i < len(states) {
			state = states[i]
		}
		if _, err := stmt.ExecContext(ctx, offset, i, p, state); err != nil {
			return fmt.Errorf("rpmdb: insert file row: %w", err)
		}
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		var blob []byte
		if err := rows.Scan(&r.Offset, &r.Name, &r.Version, &r.Release, &r.InstallTime, &blob); err != nil {
			return nil, fmt.Errorf("rpmdb: scan record: %w", err)
		}
		h := &header.Header{}
		if err := h.UnmarshalBinary(blob); err != nil {
			return nil, fmt.Errorf("rpmdb: unmarshal header: %w", err)
		}
		r.Header = h
		out = append(out, r)
	}
	return out, rows.Err()
}
