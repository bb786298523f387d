package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/gamedeck/internal/metadata"
	"github.com/xxxsen/gamedeck/internal/pathid"
)

// NodeKey identifies a node. Two nodes are the same file iff their keys match.
type NodeKey struct {
	FileID   string
	SystemID string
}

type nameMemo struct {
	once sync.Once
	name string
}

// FileNode is a handle to a stored file or folder. Children and metadata are
// always read from the store; only the display name is memoised.
type FileNode struct {
	id     string
	kind   EntityKind
	system System
	store  *FileStore
	memo   *nameMemo
}

// Node returns a handle for fileID of sys.
func (s *FileStore) Node(sys System, fileID string, kind EntityKind) FileNode {
	return FileNode{id: pathid.Normalize(fileID), kind: kind, system: sys, store: s, memo: &nameMemo{}}
}

// Root returns the root folder of sys.
func (s *FileStore) Root(sys System) FileNode {
	return s.Node(sys, pathid.Root, Folder)
}

func (n FileNode) ID() string { return n.id }
func (n FileNode) Kind() EntityKind { return n.kind }
func (n FileNode) System() System { return n.system }
func (n FileNode) SystemID() string { return n.system.Name() }
func (n FileNode) Key() NodeKey { return NodeKey{FileID: n.id, SystemID: n.system.Name()} }
func (n FileNode) Equal(o FileNode) bool { return n.Key() == o.Key() }

func (n FileNode) String() string {
	return fmt.Sprintf("%s:%s", n.system.Name(), n.id)
}

// Path returns the absolute filesystem path of the node.
func (n FileNode) Path() string {
	return pathid.ToAbsolutePath(n.id, n.system.RootPath())
}

// Parent returns the folder containing the node.
func (n FileNode) Parent() FileNode {
	return n.store.Node(n.system, pathid.Parent(n.id), Folder)
}

// Name returns the stored name or, when that is empty, a name derived from
// the file name. The result is cached on first use.
func (n FileNode) Name(ctx context.Context) string {
	n.memo.once.Do(func() {
		rec, _, err := n.store.GetMetadata(ctx, n.id, n.system.Name())
		if err != nil {
			n.memo.name = n.system.CleanName(n.id)
			return
		}
		n.memo.name = n.nameFrom(rec)
	})
	return n.memo.name
}

func (n FileNode) nameFrom(rec *metadata.Record) string {
	if rec != nil {
		if name := rec.Name(); name != "" {
			return name
		}
	}
	return n.system.CleanName(n.id)
}

func (n FileNode) warm(rec *metadata.Record) {
	n.memo.once.Do(func() {
		n.memo.name = n.nameFrom(rec)
	})
}

// Metadata reads the record of the node.
func (n FileNode) Metadata(ctx context.Context) (*metadata.Record, error) {
	rec, _, err := n.store.GetMetadata(ctx, n.id, n.system.Name())
	return rec, err
}

// SetMetadata persists rec for the node.
func (n FileNode) SetMetadata(ctx context.Context, rec *metadata.Record) error {
	return n.store.SetMetadata(ctx, n.id, n.system.Name(), n.kind, rec)
}

// Children lists the immediate existing children, folders included.
func (n FileNode) Children(ctx context.Context, sort *SortSpec) ([]FileNode, error) {
	return n.store.ChildrenOf(ctx, n.system, n.id, ChildrenOptions{IncludeFolders: true, Sort: sort})
}

// ChildrenRecursive lists every existing descendant.
func (n FileNode) ChildrenRecursive(ctx context.Context, includeFolders bool, sort *SortSpec) ([]FileNode, error) {
	return n.store.ChildrenOf(ctx, n.system, n.id, ChildrenOptions{Recursive: true, IncludeFolders: includeFolders, Sort: sort})
}
