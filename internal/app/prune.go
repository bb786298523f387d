package app

import (
	"context"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// PruneCommand deletes the rows of files that no longer exist on disk.
type PruneCommand struct {
	systemName string

	env     *Env
	systems []*system.Definition
}

func NewPruneCommand() *PruneCommand { return &PruneCommand{} }

func (c *PruneCommand) Name() string { return "prune" }

func (c *PruneCommand) Desc() string {
	return "删除数据库中已不存在的文件记录"
}

func (c *PruneCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称, 为空时处理所有系统")
}

func (c *PruneCommand) PreRun(ctx context.Context, env *Env) error {
	systems, err := env.Selected(ctx, strings.TrimSpace(c.systemName))
	if err != nil {
		return err
	}
	c.env = env
	c.systems = systems
	logutil.GetLogger(ctx).Info("starting prune", zap.Int("systems", len(systems)))
	return nil
}

func (c *PruneCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	var total int64
	for _, sys := range c.systems {
		if _, _, err := c.env.Store.VerifyExistence(ctx, sys); err != nil {
			return err
		}
		n, err := c.env.Store.DeleteMissing(ctx, sys.Name())
		if err != nil {
			return err
		}
		total += n
		logger.Info("missing files pruned", zap.String("system", sys.Name()), zap.Int64("deleted", n))
	}
	logger.Info("prune completed", zap.Int64("deleted", total))
	return nil
}

func (c *PruneCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("prune", func() IRunner { return NewPruneCommand() })
}
