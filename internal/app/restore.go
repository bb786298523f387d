package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/storage"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// RestoreCommand downloads the gamelists of a backup run and imports them.
type RestoreCommand struct {
	runID      string
	systemName string

	env     *Env
	store   storage.Client
	systems []*system.Definition
}

func NewRestoreCommand() *RestoreCommand { return &RestoreCommand{} }

func (c *RestoreCommand) Name() string { return "restore" }

func (c *RestoreCommand) Desc() string {
	return "从 S3 备份恢复 gamelist 并导入数据库"
}

func (c *RestoreCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.runID, "run", "", "备份批次 ID")
	f.StringVar(&c.systemName, "system", "", "系统名称, 为空时恢复所有系统")
}

func (c *RestoreCommand) PreRun(ctx context.Context, env *Env) error {
	c.runID = strings.TrimSpace(c.runID)
	if c.runID == "" {
		return errors.New("restore requires --run")
	}
	systems, err := env.Selected(ctx, strings.TrimSpace(c.systemName))
	if err != nil {
		return err
	}
	store, err := env.StorageClient(ctx)
	if err != nil {
		return err
	}
	c.env = env
	c.store = store
	c.systems = systems
	logutil.GetLogger(ctx).Info("starting restore",
		zap.String("run", c.runID),
		zap.Int("systems", len(systems)),
	)
	return nil
}

func (c *RestoreCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	tmpDir, err := os.MkdirTemp("", "gamedeck-restore-")
	if err != nil {
		return fmt.Errorf("create restore dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	restored := 0
	for _, sys := range c.systems {
		key := storage.GamelistKey(c.env.Config.S3.Prefix, c.runID, sys.Name())
		local := filepath.Join(tmpDir, sys.Name()+".xml")
		if err := c.store.GetGamelist(ctx, key, local); err != nil {
			logger.Warn("gamelist backup not available",
				zap.String("system", sys.Name()),
				zap.String("source", s3Path(c.env.Config.S3.Bucket, key)),
				zap.Error(err))
			continue
		}
		if _, err := c.env.Store.PopulateFromFilesystem(ctx, sys); err != nil {
			return err
		}
		res, err := c.env.Gamelists.Import(ctx, sys, local)
		if err != nil {
			return err
		}
		if err := c.env.Gamelists.Update(ctx, sys); err != nil {
			return err
		}
		restored++
		logger.Info("gamelist restored",
			zap.String("system", sys.Name()),
			zap.Int("imported", res.Imported),
			zap.Int("skipped", res.Skipped),
		)
	}
	logger.Info("restore completed", zap.String("run", c.runID), zap.Int("systems", restored))
	return nil
}

func (c *RestoreCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("restore", func() IRunner { return NewRestoreCommand() })
}
