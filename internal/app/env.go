package app

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/config"
	"github.com/xxxsen/gamedeck/internal/dat"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/gamelist"
	"github.com/xxxsen/gamedeck/internal/storage"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// Env carries the shared state every runner works against.
type Env struct {
	Config      *config.Config
	Store       *db.FileStore
	Gamelists   *gamelist.Interchange
	ArcadeNames *dat.ArcadeNames
	// Storage is the backup target; built from the s3 settings on first use
	// when left nil.
	Storage storage.Client

	defs []*system.Definition
}

// NewEnv opens the file store and loads the arcade name tables.
func NewEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("file store opened", zap.String("path", store.Path()))
	return &Env{
		Config:      cfg,
		Store:       store,
		Gamelists:   gamelist.New(store, gamelist.Options{DataDir: cfg.DataDir, IgnoreGamelist: cfg.IgnoreGamelist}),
		ArcadeNames: dat.LoadArcadeNames(ctx, cfg.MameDat, cfg.FBNeoDat),
	}, nil
}

// Definitions parses the systems configuration once.
func (e *Env) Definitions(ctx context.Context) ([]*system.Definition, error) {
	if e.defs != nil {
		return e.defs, nil
	}
	defs, err := system.LoadConfig(ctx, e.Config.SystemsConfig, e.ArcadeNames)
	if err != nil {
		return nil, err
	}
	e.defs = defs
	return defs, nil
}

// Definition returns the configured system called name.
func (e *Env) Definition(ctx context.Context, name string) (*system.Definition, error) {
	defs, err := e.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("system %s not configured", name)
}

// Selected returns every configured system, or only the named one.
func (e *Env) Selected(ctx context.Context, name string) ([]*system.Definition, error) {
	if name == "" {
		return e.Definitions(ctx)
	}
	def, err := e.Definition(ctx, name)
	if err != nil {
		return nil, err
	}
	return []*system.Definition{def}, nil
}

// Catalog loads the active systems. With refresh every system is scanned
// and reconciled with its gamelist first.
func (e *Env) Catalog(ctx context.Context, refresh bool) (*system.Catalog, error) {
	defs, err := e.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	cat := system.NewCatalog(e.Store, e.Gamelists)
	opts := system.LoadOptions{
		Refresh:        refresh,
		GamelistOnly:   e.Config.ParseGamelistOnly,
		IgnoreGamelist: e.Config.IgnoreGamelist,
	}
	if err := cat.Load(ctx, defs, opts); err != nil {
		return nil, err
	}
	return cat, nil
}

// StorageClient returns the backup target, connecting to S3 when none was
// injected.
func (e *Env) StorageClient(ctx context.Context) (storage.Client, error) {
	if e.Storage != nil {
		return e.Storage, nil
	}
	if err := e.Config.ValidateS3(); err != nil {
		return nil, err
	}
	client, err := storage.NewS3Client(ctx, e.Config.S3)
	if err != nil {
		return nil, err
	}
	e.Storage = client
	return client, nil
}

func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}
