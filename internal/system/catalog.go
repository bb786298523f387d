package system

import (
	"context"
	"errors"
	"os"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/gamelist"
	"go.uber.org/zap"
)

// LoadOptions controls how much work Load does per system.
type LoadOptions struct {
	// Refresh scans the filesystem, imports gamelists and verifies rows.
	// Without it only the game counts already in the store are consulted.
	Refresh bool
	// GamelistOnly skips the filesystem scan during a refresh.
	GamelistOnly bool
	// IgnoreGamelist skips gamelist imports during a refresh.
	IgnoreGamelist bool
}

// Catalog is the ordered set of systems that have at least one game.
type Catalog struct {
	store     *db.FileStore
	gamelists *gamelist.Interchange
	systems   []*Definition
}

func NewCatalog(store *db.FileStore, gamelists *gamelist.Interchange) *Catalog {
	return &Catalog{store: store, gamelists: gamelists}
}

// Load brings every definition up to date in the store and keeps the ones
// with games. Store failures abort; gamelist failures only affect their
// own system.
func (c *Catalog) Load(ctx context.Context, defs []*Definition, opts LoadOptions) error {
	logger := logutil.GetLogger(ctx)
	active := make([]*Definition, 0, len(defs))
	for _, def := range defs {
		if opts.Refresh {
			if err := c.refresh(ctx, def, opts); err != nil {
				return err
			}
		}
		count, err := c.store.CountGames(ctx, def.Name())
		if err != nil {
			return err
		}
		if count == 0 {
			logger.Warn("system has no games, skipped", zap.String("system", def.Name()), zap.String("root", def.RootPath()))
			continue
		}
		logger.Info("system loaded", zap.String("system", def.Name()), zap.Int("games", count))
		active = append(active, def)
	}
	c.systems = active
	return nil
}

func (c *Catalog) refresh(ctx context.Context, def *Definition, opts LoadOptions) error {
	logger := logutil.GetLogger(ctx).With(zap.String("system", def.Name()))
	if !opts.GamelistOnly {
		if _, err := c.store.PopulateFromFilesystem(ctx, def); err != nil {
			return err
		}
	}
	if !opts.IgnoreGamelist {
		xmlPath := c.gamelists.PathFor(def)
		_, err := c.gamelists.Import(ctx, def, xmlPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// nothing to import
		case err != nil:
			var se *db.StoreError
			if errors.As(err, &se) {
				return err
			}
			logger.Error("import gamelist failed", zap.String("gamelist", xmlPath), zap.Error(err))
		}
	}
	_, _, err := c.store.VerifyExistence(ctx, def)
	return err
}

// Systems returns the active systems in configuration order.
func (c *Catalog) Systems() []*Definition {
	out := make([]*Definition, len(c.systems))
	copy(out, c.systems)
	return out
}

// Get finds an active system by name.
func (c *Catalog) Get(name string) (*Definition, bool) {
	for _, s := range c.systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}
