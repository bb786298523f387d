package db

import (
	"context"
	"fmt"

	"github.com/xxxsen/gamedeck/internal/pathid"
)

// ChildrenOptions selects which descendants ChildrenOf returns.
type ChildrenOptions struct {
	Recursive      bool
	IncludeFolders bool
	Sort           *SortSpec
}

// ChildrenOf lists the existing children of dirID in sys. A nil sort orders
// by name ascending.
func (s *FileStore) ChildrenOf(ctx context.Context, sys System, dirID string, opts ChildrenOptions) ([]FileNode, error) {
	predicate := "isImmediateChildOf"
	if opts.Recursive {
		predicate = "isInDirectory"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = 1 AND %s(%s, ?)",
		selectColumnsSQL(), quoteIdent(tableFiles), quoteIdent(colSystemID), quoteIdent(colExists), predicate, quoteIdent(colFileID))
	args := []any{sys.Name(), pathid.Normalize(dirID)}
	if !opts.IncludeFolders {
		query += fmt.Sprintf(" AND %s = ?", quoteIdent(colFileType))
		args = append(args, int(Game))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("children of", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, storeErr("children of", err)
	}

	items := make([]SortItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, SortItem{Node: s.Node(sys, e.FileID, e.Kind), Record: e.Record})
	}
	sortItems(items, opts.Sort)
	nodes := make([]FileNode, 0, len(items))
	for _, it := range items {
		it.Node.warm(it.Record)
		nodes = append(nodes, it.Node)
	}
	return nodes, nil
}
