package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"go.uber.org/zap"
)

type pendingRow struct {
	fileID string
	kind   EntityKind
}

type walker struct {
	ctx    context.Context
	sys    System
	root   string
	exts   map[string]struct{}
	logger *zap.Logger
}

// PopulateFromFilesystem walks the root of sys and inserts every game file
// and every folder holding at least one game. Known rows are left untouched.
// It reports whether anything qualifying was found.
func (s *FileStore) PopulateFromFilesystem(ctx context.Context, sys System) (bool, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("system", sys.Name()))
	root, err := filepath.EvalSymlinks(pathid.ExpandHome(sys.RootPath()))
	if err != nil {
		logger.Warn("system root not readable", zap.String("root", sys.RootPath()), zap.Error(err))
		return false, nil
	}
	w := &walker{
		ctx:    ctx,
		sys:    sys,
		root:   root,
		exts:   make(map[string]struct{}, len(sys.Extensions())),
		logger: logger,
	}
	for _, ext := range sys.Extensions() {
		w.exts[strings.ToLower(ext)] = struct{}{}
	}
	found, rows := w.walk(root, map[string]struct{}{root: {}})
	if !found {
		return false, nil
	}

	inserted := 0
	err = s.onTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s, %s, %s, %s) VALUES (?, ?, ?, 1, ?)",
			quoteIdent(tableFiles), quoteIdent(colFileID), quoteIdent(colSystemID), quoteIdent(colFileType), quoteIdent(colExists), quoteIdent("name")))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			res, err := stmt.ExecContext(ctx, r.fileID, sys.Name(), int(r.kind), sys.CleanName(r.fileID))
			if err != nil {
				logger.Error("insert scanned file failed", zap.String("file", r.fileID), zap.Error(err))
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return false, storeErr("populate", err)
	}
	logger.Debug("populate finished", zap.Int("scanned", len(rows)), zap.Int("inserted", inserted))
	return true, nil
}

// walk returns whether dir holds a qualifying file and the rows to insert
// for its subtree. ancestors holds the resolved directories on the current
// path and guards against symlink loops.
func (w *walker) walk(dir string, ancestors map[string]struct{}) (bool, []pendingRow) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Error("read dir failed", zap.String("dir", dir), zap.Error(err))
		return false, nil
	}
	var rows []pendingRow
	found := false
	for _, de := range entries {
		full := filepath.Join(dir, de.Name())
		isDir := de.IsDir()
		resolved := full
		if de.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(full)
			if err != nil {
				w.logger.Warn("skip broken symlink", zap.String("path", full), zap.Error(err))
				continue
			}
			if full == target || strings.HasPrefix(full, target+string(filepath.Separator)) {
				w.logger.Warn("skip recursive symlink", zap.String("path", full), zap.String("target", target))
				continue
			}
			info, err := os.Stat(target)
			if err != nil {
				w.logger.Warn("skip unreadable symlink", zap.String("path", full), zap.Error(err))
				continue
			}
			isDir = info.IsDir()
			resolved = target
		}

		id, err := pathid.ToIdentifier(full, w.root)
		if err != nil {
			w.logger.Error("skip entry outside root", zap.String("path", full), zap.Error(err))
			continue
		}
		if _, ok := w.exts[strings.ToLower(filepath.Ext(de.Name()))]; ok {
			rows = append(rows, pendingRow{fileID: id, kind: Game})
			found = true
			continue
		}
		if !isDir {
			continue
		}
		if _, loop := ancestors[resolved]; loop {
			w.logger.Warn("skip directory loop", zap.String("path", full), zap.String("target", resolved))
			continue
		}
		ancestors[resolved] = struct{}{}
		subFound, subRows := w.walk(full, ancestors)
		delete(ancestors, resolved)
		if !subFound {
			continue
		}
		rows = append(rows, pendingRow{fileID: id, kind: Folder})
		rows = append(rows, subRows...)
		found = true
	}
	return found, rows
}

// VerifyExistence refreshes the exists flag of every row of sys against the
// filesystem. Rows are never deleted here.
func (s *FileStore) VerifyExistence(ctx context.Context, sys System) (present, missing int, err error) {
	logger := logutil.GetLogger(ctx).With(zap.String("system", sys.Name()))
	err = s.onTransaction(ctx, func(tx *sql.Tx) error {
		query, args, err := builder.BuildSelect(tableFiles, map[string]interface{}{colSystemID: sys.Name()}, []string{colFileID, colExists})
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		type state struct {
			id     string
			exists bool
		}
		var known []state
		for rows.Next() {
			var st state
			var flag int64
			if err := rows.Scan(&st.id, &flag); err != nil {
				rows.Close()
				return err
			}
			st.exists = flag != 0
			known = append(known, st)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, st := range known {
			_, statErr := os.Stat(pathid.ToAbsolutePath(st.id, sys.RootPath()))
			onDisk := statErr == nil
			if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
				logger.Warn("stat file failed", zap.String("file", st.id), zap.Error(statErr))
			}
			if onDisk {
				present++
			} else {
				missing++
			}
			if onDisk == st.exists {
				continue
			}
			flag := 0
			if onDisk {
				flag = 1
			}
			where := map[string]interface{}{colFileID: st.id, colSystemID: sys.Name()}
			query, args, err := builder.BuildUpdate(tableFiles, where, map[string]interface{}{colExists: flag})
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				logger.Error("update exists flag failed", zap.String("file", st.id), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, storeErr("verify existence", err)
	}
	logger.Debug("verify finished", zap.Int("present", present), zap.Int("missing", missing))
	return present, missing, nil
}
