// Package db is the relational file store: one row per known file or folder
// of every system, with one column per game metadata field.
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/metadata"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"go.uber.org/zap"
	"modernc.org/sqlite"
)

const (
	tableFiles    = "files"
	tableFilesOld = "files_old"

	colFileID   = "fileid"
	colSystemID = "systemid"
	colFileType = "filetype"
	colExists   = "fileexists"
)

var reservedColumns = []string{colFileID, colSystemID, colFileType, colExists}

// StoreError wraps a failure of the backing database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// NotFoundError is returned when no row exists for a file.
type NotFoundError struct {
	FileID   string
	SystemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file %s of system %s not found", e.FileID, e.SystemID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// EntityKind is the persisted kind of a row.
type EntityKind int

const (
	Game   EntityKind = 1
	Folder EntityKind = 2
)

// MetadataKind maps the entity kind to its metadata schema.
func (k EntityKind) MetadataKind() metadata.Kind {
	if k == Folder {
		return metadata.KindFolder
	}
	return metadata.KindGame
}

func (k EntityKind) String() string {
	if k == Folder {
		return "folder"
	}
	return "game"
}

// System is the read-only view of a configured system the store needs.
type System interface {
	Name() string
	RootPath() string
	Extensions() []string
	CleanName(fileID string) string
}

type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FileStore owns the database handle. It expects a single writer.
type FileStore struct {
	db   *sql.DB
	path string
}

var (
	registerOnce sync.Once
	registerErr  error
)

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("isInDirectory", 2, dirPredicate(pathid.IsInDirectory))
		if registerErr != nil {
			return
		}
		registerErr = sqlite.RegisterDeterministicScalarFunction("isImmediateChildOf", 2, dirPredicate(pathid.IsImmediateChildOf))
	})
	return registerErr
}

func dirPredicate(fn func(file, dir string) bool) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if fn(textValue(args[0]), textValue(args[1])) {
			return int64(1), nil
		}
		return int64(0), nil
	}
}

func textValue(v driver.Value) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Open opens or creates the store at path and brings its schema up to date.
func Open(ctx context.Context, path string) (*FileStore, error) {
	if err := registerFunctions(); err != nil {
		return nil, storeErr("register functions", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("open", err)
		}
	}
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open", err)
	}
	sqldb.SetMaxOpenConns(1)
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, storeErr("open", err)
	}
	s := &FileStore{db: sqldb, path: path}
	if err := s.prepareSchema(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *FileStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) prepareSchema(ctx context.Context) error {
	if err := metadata.ValidateSchema(); err != nil {
		return storeErr("validate schema", err)
	}
	if err := s.createMissingTables(ctx); err != nil {
		return err
	}
	valid, err := s.hasValidSchema(ctx)
	if err != nil {
		return err
	}
	if valid {
		return nil
	}
	logutil.GetLogger(ctx).Info("file table layout changed, migrating", zap.String("db", s.path))
	return s.recreateTables(ctx)
}

// expectedColumns is the physical column order of the files table.
func expectedColumns() []string {
	cols := append([]string{}, reservedColumns...)
	for _, f := range metadata.FieldsFor(metadata.KindGame) {
		cols = append(cols, f.Key)
	}
	return cols
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func columnType(t metadata.FieldType) string {
	switch t {
	case metadata.Integer:
		return "INTEGER"
	case metadata.Float, metadata.Rating:
		return "REAL"
	case metadata.LongString:
		return "TEXT"
	case metadata.ShortString, metadata.ImagePath:
		return "VARCHAR(255)"
	}
	// timestamps and booleans are kept as canonical text
	return "TEXT"
}

func createTableSQL(table string) string {
	defs := []string{
		quoteIdent(colFileID) + " VARCHAR(255) NOT NULL",
		quoteIdent(colSystemID) + " VARCHAR(255) NOT NULL",
		quoteIdent(colFileType) + " INTEGER NOT NULL",
		quoteIdent(colExists) + " BOOLEAN NOT NULL DEFAULT 1",
	}
	for _, f := range metadata.FieldsFor(metadata.KindGame) {
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL DEFAULT %s", quoteIdent(f.Key), columnType(f.Type), quoteLiteral(f.Default)))
	}
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s, %s)", quoteIdent(colFileID), quoteIdent(colSystemID)))
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(table), strings.Join(defs, ",\n\t"))
}

const createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_files_systemid ON files(systemid, filetype)`

func (s *FileStore) createMissingTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL(tableFiles)); err != nil {
		return storeErr("create table", err)
	}
	if _, err := s.db.ExecContext(ctx, createIndexSQL); err != nil {
		return storeErr("create index", err)
	}
	return nil
}

func tableColumns(ctx context.Context, q queryExecer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (s *FileStore) hasValidSchema(ctx context.Context) (bool, error) {
	cols, err := tableColumns(ctx, s.db, tableFiles)
	if err != nil {
		return false, storeErr("inspect schema", err)
	}
	want := expectedColumns()
	if len(cols) != len(want) {
		return false, nil
	}
	for i := range want {
		if cols[i] != want[i] {
			return false, nil
		}
	}
	return true, nil
}

// recreateTables moves existing rows into a table with the current layout,
// keeping every column both layouts share.
func (s *FileStore) recreateTables(ctx context.Context) error {
	err := s.onTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tableFilesOld)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(tableFiles), quoteIdent(tableFilesOld))); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, createTableSQL(tableFiles)); err != nil {
			return err
		}
		oldCols, err := tableColumns(ctx, tx, tableFilesOld)
		if err != nil {
			return err
		}
		have := make(map[string]struct{}, len(oldCols))
		for _, c := range oldCols {
			have[c] = struct{}{}
		}
		var shared []string
		for _, c := range expectedColumns() {
			if _, ok := have[c]; ok {
				shared = append(shared, quoteIdent(c))
			}
		}
		if len(shared) > 0 {
			list := strings.Join(shared, ", ")
			copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", quoteIdent(tableFiles), list, list, quoteIdent(tableFilesOld))
			if _, err := tx.ExecContext(ctx, copySQL); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(tableFilesOld)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, createIndexSQL)
		return err
	})
	return storeErr("migrate schema", err)
}

func (s *FileStore) onTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
