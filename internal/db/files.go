package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/gamedeck/internal/metadata"
)

// Entry is one stored row.
type Entry struct {
	FileID   string
	SystemID string
	Kind     EntityKind
	Exists   bool
	Record   *metadata.Record
}

func selectColumnsSQL() string {
	cols := expectedColumns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	cols := expectedColumns()
	var out []Entry
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		values := make(map[string]string, len(cols))
		for i, c := range cols {
			values[c] = columnText(raw[i])
		}
		kind := EntityKind(toInt(raw[2]))
		out = append(out, Entry{
			FileID:   values[colFileID],
			SystemID: values[colSystemID],
			Kind:     kind,
			Exists:   toInt(raw[3]) != 0,
			Record:   metadata.RecordFromColumns(kind.MetadataKind(), values),
		})
	}
	return out, rows.Err()
}

func columnText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', 6, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return metadata.FormatStoreTime(x)
	}
	return fmt.Sprint(v)
}

func toInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	}
	return 0
}

// GetMetadata returns the stored record of a file.
func (s *FileStore) GetMetadata(ctx context.Context, fileID, systemID string) (*metadata.Record, EntityKind, error) {
	e, err := s.getEntry(ctx, s.db, fileID, systemID)
	if err != nil {
		return nil, 0, err
	}
	return e.Record, e.Kind, nil
}

func (s *FileStore) getEntry(ctx context.Context, q queryExecer, fileID, systemID string) (*Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?", selectColumnsSQL(), quoteIdent(tableFiles), quoteIdent(colFileID), quoteIdent(colSystemID))
	rows, err := q.QueryContext(ctx, query, fileID, systemID)
	if err != nil {
		return nil, storeErr("get metadata", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, storeErr("get metadata", err)
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{FileID: fileID, SystemID: systemID}
	}
	return &entries[0], nil
}

// SetMetadata writes every column of a file, replacing any previous row. The
// exists flag is set since a write implies the file is present.
func (s *FileStore) SetMetadata(ctx context.Context, fileID, systemID string, kind EntityKind, rec *metadata.Record) error {
	if err := s.replace(ctx, s.db, fileID, systemID, kind, rec); err != nil {
		return err
	}
	rec.ResetChanged()
	return nil
}

// SetMetadataBatch writes many rows in one transaction.
func (s *FileStore) SetMetadataBatch(ctx context.Context, entries []Entry) error {
	err := s.onTransaction(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := s.replace(ctx, tx, e.FileID, e.SystemID, e.Kind, e.Record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("set metadata batch", err)
	}
	for _, e := range entries {
		e.Record.ResetChanged()
	}
	return nil
}

func (s *FileStore) replace(ctx context.Context, q queryExecer, fileID, systemID string, kind EntityKind, rec *metadata.Record) error {
	cols := expectedColumns()
	values := rec.Columns()
	args := make([]any, 0, len(cols))
	args = append(args, fileID, systemID, int(kind), 1)
	for _, c := range cols[len(reservedColumns):] {
		args = append(args, values[c])
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", quoteIdent(tableFiles), selectColumnsSQL(), marks)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return storeErr("set metadata", err)
	}
	return nil
}

// Entries lists the rows of a system ordered by identifier.
func (s *FileStore) Entries(ctx context.Context, systemID string, onlyExisting bool) ([]Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", selectColumnsSQL(), quoteIdent(tableFiles), quoteIdent(colSystemID))
	if onlyExisting {
		query += " AND " + quoteIdent(colExists) + " = 1"
	}
	rows, err := s.db.QueryContext(ctx, query, systemID)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].FileID < entries[j].FileID })
	return entries, nil
}

// FileExists reports the stored exists flag of a file.
func (s *FileStore) FileExists(ctx context.Context, fileID, systemID string) (bool, error) {
	where := map[string]interface{}{
		colFileID:   fileID,
		colSystemID: systemID,
	}
	query, args, err := builder.BuildSelect(tableFiles, where, []string{colExists})
	if err != nil {
		return false, storeErr("file exists", err)
	}
	var exists int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr("file exists", err)
	}
	return exists != 0, nil
}

// CountGames counts existing game rows of a system.
func (s *FileStore) CountGames(ctx context.Context, systemID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ? AND %s = 1",
		quoteIdent(tableFiles), quoteIdent(colSystemID), quoteIdent(colFileType), quoteIdent(colExists))
	var n int
	if err := s.db.QueryRowContext(ctx, query, systemID, int(Game)).Scan(&n); err != nil {
		return 0, storeErr("count games", err)
	}
	return n, nil
}

// DeleteFile removes a single row.
func (s *FileStore) DeleteFile(ctx context.Context, fileID, systemID string) error {
	where := map[string]interface{}{
		colFileID:   fileID,
		colSystemID: systemID,
	}
	query, args, err := builder.BuildDelete(tableFiles, where)
	if err != nil {
		return storeErr("delete file", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("delete file", err)
	}
	return nil
}

// DeleteMissing removes the rows of a system whose exists flag is cleared.
func (s *FileStore) DeleteMissing(ctx context.Context, systemID string) (int64, error) {
	where := map[string]interface{}{
		colSystemID: systemID,
		colExists:   0,
	}
	query, args, err := builder.BuildDelete(tableFiles, where)
	if err != nil {
		return 0, storeErr("delete missing", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeErr("delete missing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("delete missing", err)
	}
	return n, nil
}
