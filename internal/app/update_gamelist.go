package app

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// UpdateGamelistCommand merges the stored metadata back into each
// system's gamelist document.
type UpdateGamelistCommand struct {
	systemName string

	env     *Env
	systems []*system.Definition
}

func NewUpdateGamelistCommand() *UpdateGamelistCommand { return &UpdateGamelistCommand{} }

func (c *UpdateGamelistCommand) Name() string { return "update-gamelist" }

func (c *UpdateGamelistCommand) Desc() string {
	return "将数据库中的元数据回写到 gamelist.xml"
}

func (c *UpdateGamelistCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称, 为空时处理所有系统")
}

func (c *UpdateGamelistCommand) PreRun(ctx context.Context, env *Env) error {
	if env.Gamelists.Ignored() {
		return errors.New("update-gamelist is disabled by ignore_gamelist")
	}
	systems, err := env.Selected(ctx, strings.TrimSpace(c.systemName))
	if err != nil {
		return err
	}
	c.env = env
	c.systems = systems
	logutil.GetLogger(ctx).Info("starting gamelist update", zap.Int("systems", len(systems)))
	return nil
}

func (c *UpdateGamelistCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	for _, sys := range c.systems {
		if err := c.env.Gamelists.Update(ctx, sys); err != nil {
			return err
		}
		logger.Info("gamelist updated",
			zap.String("system", sys.Name()),
			zap.String("gamelist", c.env.Gamelists.PathFor(sys)),
		)
	}
	logger.Info("gamelist update completed", zap.Int("systems", len(c.systems)))
	return nil
}

func (c *UpdateGamelistCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("update-gamelist", func() IRunner { return NewUpdateGamelistCommand() })
}
