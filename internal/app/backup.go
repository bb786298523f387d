package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/storage"
	"go.uber.org/zap"
)

// BackupCommand uploads every active system's gamelist to S3 under a new
// run identifier.
type BackupCommand struct {
	env   *Env
	store storage.Client
	runID string
}

func NewBackupCommand() *BackupCommand { return &BackupCommand{} }

func (c *BackupCommand) Name() string { return "backup" }

func (c *BackupCommand) Desc() string {
	return "导出所有系统的 gamelist 并备份到 S3"
}

func (c *BackupCommand) Init(f *pflag.FlagSet) {}

func (c *BackupCommand) PreRun(ctx context.Context, env *Env) error {
	store, err := env.StorageClient(ctx)
	if err != nil {
		return err
	}
	c.env = env
	c.store = store
	c.runID = uuid.NewString()
	logutil.GetLogger(ctx).Info("starting backup",
		zap.String("run", c.runID),
		zap.String("bucket", env.Config.S3.Bucket),
	)
	return nil
}

func (c *BackupCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	catalog, err := c.env.Catalog(ctx, false)
	if err != nil {
		return err
	}
	tmpDir, err := os.MkdirTemp("", "gamedeck-backup-")
	if err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for _, sys := range catalog.Systems() {
		local := filepath.Join(tmpDir, sys.Name()+".xml")
		written, err := c.env.Gamelists.Export(ctx, sys, local)
		if err != nil {
			return err
		}
		key := storage.GamelistKey(c.env.Config.S3.Prefix, c.runID, sys.Name())
		if err := c.store.PutGamelist(ctx, key, local); err != nil {
			return err
		}
		logger.Info("gamelist backed up",
			zap.String("system", sys.Name()),
			zap.Int("entries", written),
			zap.String("target", s3Path(c.env.Config.S3.Bucket, key)),
		)
	}
	logger.Info("backup completed",
		zap.String("run", c.runID),
		zap.Int("systems", len(catalog.Systems())),
	)
	return nil
}

func (c *BackupCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("backup", func() IRunner { return NewBackupCommand() })
}
