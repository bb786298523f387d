// Package gamelist synchronises the file store with per-system gamelist.xml
// documents.
package gamelist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/metadata"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"go.uber.org/zap"
)

const fileName = "gamelist.xml"

// AmbiguousPathError is returned by Update when two stored rows resolve to
// the same file on disk.
type AmbiguousPathError struct {
	Path  string
	First string
	Other string
}

func (e *AmbiguousPathError) Error() string {
	return fmt.Sprintf("files %s and %s both resolve to %s", e.First, e.Other, e.Path)
}

// Options controls where gamelists live and whether they are written.
type Options struct {
	DataDir        string
	IgnoreGamelist bool
}

// Interchange imports, exports and updates gamelist documents.
type Interchange struct {
	store *db.FileStore
	opts  Options
}

func New(store *db.FileStore, opts Options) *Interchange {
	return &Interchange{store: store, opts: opts}
}

// Ignored reports whether gamelist writes are disabled.
func (g *Interchange) Ignored() bool {
	return g.opts.IgnoreGamelist
}

// PathFor returns the gamelist of sys: the one in the system root when it
// exists, else the one under the data directory.
func (g *Interchange) PathFor(sys db.System) string {
	local := filepath.Join(pathid.ExpandHome(sys.RootPath()), fileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(pathid.ExpandHome(g.opts.DataDir), "gamelists", sys.Name(), fileName)
}

// ImportResult summarises an import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Import reads xmlPath and writes one row per entry whose file exists. The
// document is fully parsed before anything is written.
func (g *Interchange) Import(ctx context.Context, sys db.System, xmlPath string) (*ImportResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("system", sys.Name()), zap.String("gamelist", xmlPath))
	doc, err := metadata.ParseGamelistFile(xmlPath)
	if err != nil {
		return nil, err
	}
	xmlDir := filepath.Dir(xmlPath)
	res := &ImportResult{}
	var entries []db.Entry
	seen := make(map[string]int)
	for i := range doc.Nodes {
		node := &doc.Nodes[i]
		kind, ok := nodeKind(node.Tag())
		if !ok {
			continue
		}
		abs, ok := resolveExisting(node.Path(), sys.RootPath(), xmlDir)
		if !ok {
			logger.Warn("skip gamelist entry, file not found", zap.String("path", node.Path()))
			res.Skipped++
			continue
		}
		id, err := pathid.ToIdentifier(abs, sys.RootPath())
		if err != nil {
			logger.Warn("skip gamelist entry", zap.String("path", node.Path()), zap.Error(err))
			res.Skipped++
			continue
		}
		existing, _, err := g.store.GetMetadata(ctx, id, sys.Name())
		if err != nil && !db.IsNotFound(err) {
			return nil, err
		}
		rec := buildRecord(ctx, sys, id, kind, node, existing, xmlDir)
		if idx, dup := seen[id]; dup {
			entries[idx] = db.Entry{FileID: id, SystemID: sys.Name(), Kind: kind, Record: rec}
			continue
		}
		seen[id] = len(entries)
		entries = append(entries, db.Entry{FileID: id, SystemID: sys.Name(), Kind: kind, Record: rec})
	}
	if err := g.store.SetMetadataBatch(ctx, entries); err != nil {
		return nil, err
	}
	res.Imported = len(entries)
	logger.Info("gamelist imported", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	return res, nil
}

func buildRecord(ctx context.Context, sys db.System, id string, kind db.EntityKind, node *metadata.GamelistNode, existing *metadata.Record, xmlDir string) *metadata.Record {
	rec := metadata.NewRecord(kind.MetadataKind())
	for _, f := range rec.Fields() {
		v, ok := node.Value(f.Key)
		if !ok {
			if f.Statistic && existing != nil {
				if prev, err := existing.Get(f.Key); err == nil {
					_ = rec.Set(f.Key, prev)
				}
			}
			continue
		}
		if f.Type == metadata.ImagePath && v != "" {
			if abs, found := resolveExisting(v, sys.RootPath(), xmlDir); found {
				v = abs
			} else {
				v = pathid.ResolveRelative(v, sys.RootPath())
			}
		}
		if err := rec.Set(f.Key, v); err != nil {
			logutil.GetLogger(ctx).Warn("ignore invalid gamelist value",
				zap.String("file", id), zap.String("field", f.Key), zap.String("value", v), zap.Error(err))
		}
	}
	if rec.Name() == "" {
		_ = rec.Set("name", sys.CleanName(id))
	}
	return rec
}

func nodeKind(tag string) (db.EntityKind, bool) {
	switch tag {
	case metadata.NodeGame:
		return db.Game, true
	case metadata.NodeFolder:
		return db.Folder, true
	}
	return 0, false
}

// resolveExisting resolves p against the system root, then against the
// gamelist directory, and returns the first candidate present on disk.
func resolveExisting(p, root, xmlDir string) (string, bool) {
	if p == "" {
		return "", false
	}
	for _, base := range []string{root, xmlDir} {
		abs := pathid.ToAbsolutePath(p, base)
		if _, err := os.Stat(abs); err == nil {
			return abs, true
		}
	}
	return "", false
}

// Export writes every existing row of sys to xmlPath as a fresh document.
func (g *Interchange) Export(ctx context.Context, sys db.System, xmlPath string) (int, error) {
	entries, err := g.store.Entries(ctx, sys.Name(), true)
	if err != nil {
		return 0, err
	}
	doc := &metadata.Gamelist{}
	for _, e := range entries {
		if node, keep := buildNode(sys, e); keep {
			doc.Nodes = append(doc.Nodes, node)
		}
	}
	if err := metadata.WriteGamelistFile(xmlPath, doc); err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("gamelist exported", zap.String("system", sys.Name()),
		zap.String("gamelist", xmlPath), zap.Int("nodes", len(doc.Nodes)))
	return len(doc.Nodes), nil
}

// buildNode serialises an entry. Fields holding their default and a name
// equal to the derived one are left out; a node with nothing left is dropped.
func buildNode(sys db.System, e db.Entry) (metadata.GamelistNode, bool) {
	tag := metadata.NodeGame
	if e.Kind == db.Folder {
		tag = metadata.NodeFolder
	}
	root := pathid.ExpandHome(sys.RootPath())
	node := metadata.NewGamelistNode(tag)
	node.Add("path", pathid.MakeRelative(pathid.ToAbsolutePath(e.FileID, root), root))
	written := 0
	for _, f := range e.Record.Fields() {
		v, err := e.Record.Get(f.Key)
		if err != nil {
			continue
		}
		if f.Key == "name" {
			if v == "" || v == sys.CleanName(e.FileID) {
				continue
			}
		} else if v == f.Default {
			continue
		}
		switch {
		case f.Type == metadata.ImagePath:
			v = pathid.MakeRelative(v, root)
		case f.Type.IsTime():
			v = metadata.ToLegacyTime(v)
		}
		node.Add(f.Key, v)
		written++
	}
	return node, written > 0
}

// Update rewrites the gamelist of sys from the store while keeping nodes
// and content the store does not know about.
func (g *Interchange) Update(ctx context.Context, sys db.System) error {
	if g.opts.IgnoreGamelist {
		return nil
	}
	xmlPath := g.PathFor(sys)
	doc, err := metadata.ParseGamelistFile(xmlPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		doc = &metadata.Gamelist{}
	case err != nil:
		return err
	}
	entries, err := g.store.Entries(ctx, sys.Name(), true)
	if err != nil {
		return err
	}

	root := pathid.ExpandHome(sys.RootPath())
	owners := make(map[string]string, len(entries))
	for _, e := range entries {
		canon := canonicalPath(pathid.ToAbsolutePath(e.FileID, root))
		if prev, dup := owners[canon]; dup {
			return &AmbiguousPathError{Path: canon, First: prev, Other: e.FileID}
		}
		owners[canon] = e.FileID
	}

	xmlDir := filepath.Dir(xmlPath)
	byPath := make(map[string][]int)
	for i := range doc.Nodes {
		if _, ok := nodeKind(doc.Nodes[i].Tag()); !ok {
			continue
		}
		p := doc.Nodes[i].Path()
		if p == "" {
			continue
		}
		abs, ok := resolveExisting(p, root, xmlDir)
		if !ok {
			abs = pathid.ToAbsolutePath(p, root)
		}
		canon := canonicalPath(abs)
		byPath[canon] = append(byPath[canon], i)
	}

	removed := make(map[int]bool)
	var fresh []metadata.GamelistNode
	for _, e := range entries {
		canon := canonicalPath(pathid.ToAbsolutePath(e.FileID, root))
		if idx := byPath[canon]; len(idx) > 0 {
			removed[idx[0]] = true
			byPath[canon] = idx[1:]
		}
		if node, keep := buildNode(sys, e); keep {
			fresh = append(fresh, node)
		}
	}
	kept := make([]metadata.GamelistNode, 0, len(doc.Nodes)-len(removed)+len(fresh))
	for i := range doc.Nodes {
		if !removed[i] {
			kept = append(kept, doc.Nodes[i])
		}
	}
	doc.Nodes = append(kept, fresh...)

	if err := metadata.WriteGamelistFile(xmlPath, doc); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("gamelist updated", zap.String("system", sys.Name()),
		zap.String("gamelist", xmlPath), zap.Int("replaced", len(removed)), zap.Int("written", len(fresh)))
	return nil
}

func canonicalPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
