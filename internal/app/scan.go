package app

import (
	"context"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ScanCommand refreshes every configured system from disk and its gamelist.
type ScanCommand struct {
	env *Env
}

func NewScanCommand() *ScanCommand { return &ScanCommand{} }

func (c *ScanCommand) Name() string { return "scan" }

func (c *ScanCommand) Desc() string {
	return "扫描 ROM 目录并同步数据库与 gamelist"
}

func (c *ScanCommand) Init(f *pflag.FlagSet) {}

func (c *ScanCommand) PreRun(ctx context.Context, env *Env) error {
	c.env = env
	logutil.GetLogger(ctx).Info("starting scan",
		zap.String("systems_config", env.Config.SystemsConfig),
		zap.Bool("gamelist_only", env.Config.ParseGamelistOnly),
		zap.Bool("ignore_gamelist", env.Config.IgnoreGamelist),
	)
	return nil
}

func (c *ScanCommand) Run(ctx context.Context) error {
	cat, err := c.env.Catalog(ctx, true)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	total := 0
	for _, sys := range cat.Systems() {
		count, err := c.env.Store.CountGames(ctx, sys.Name())
		if err != nil {
			return err
		}
		total += count
	}
	logger.Info("scan completed",
		zap.Int("systems", len(cat.Systems())),
		zap.Int("games", total),
	)
	return nil
}

func (c *ScanCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("scan", func() IRunner { return NewScanCommand() })
}
