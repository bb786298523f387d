package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/metadata"
	"github.com/xxxsen/gamedeck/internal/model"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/system"
)

// resolveFileID accepts an identifier, a path relative to the system root,
// or an absolute (or "~/") path and returns the identifier.
func resolveFileID(sys *system.Definition, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return pathid.Root, nil
	}
	if filepath.IsAbs(p) || p == "~" || strings.HasPrefix(p, "~/") {
		return pathid.ToIdentifier(pathid.ExpandHome(p), sys.RootPath())
	}
	return pathid.Normalize(p), nil
}

func toSystemModel(ctx context.Context, store *db.FileStore, sys *system.Definition) (model.System, error) {
	games, err := store.CountGames(ctx, sys.Name())
	if err != nil {
		return model.System{}, err
	}
	platforms := make([]string, 0, len(sys.Platforms()))
	for _, p := range sys.Platforms() {
		platforms = append(platforms, string(p))
	}
	return model.System{
		Name:       sys.Name(),
		FullName:   sys.FullName(),
		Root:       sys.RootPath(),
		Extensions: sys.Extensions(),
		Platforms:  platforms,
		Theme:      sys.Theme(),
		Games:      games,
	}, nil
}

func toFileModels(ctx context.Context, nodes []db.FileNode) []model.File {
	out := make([]model.File, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, model.File{
			ID:   n.ID(),
			Kind: n.Kind().String(),
			Name: n.Name(ctx),
			Path: n.Path(),
		})
	}
	return out
}

func toMetadataModel(sys string, id string, rec *metadata.Record) model.Metadata {
	fields := make(map[string]string, len(rec.Fields()))
	for _, f := range rec.Fields() {
		v, _ := rec.Get(f.Key)
		fields[f.Key] = v
	}
	return model.Metadata{
		System: sys,
		ID:     id,
		Kind:   rec.Kind().String(),
		Fields: fields,
	}
}

func s3Path(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
