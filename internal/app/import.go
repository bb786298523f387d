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

// ImportCommand merges a gamelist document into the store.
type ImportCommand struct {
	systemName string
	file       string

	env *Env
	sys *system.Definition
}

func NewImportCommand() *ImportCommand { return &ImportCommand{} }

func (c *ImportCommand) Name() string { return "import" }

func (c *ImportCommand) Desc() string {
	return "导入 gamelist.xml 到数据库"
}

func (c *ImportCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称")
	f.StringVar(&c.file, "file", "", "gamelist.xml 路径, 默认使用系统的 gamelist 位置")
}

func (c *ImportCommand) PreRun(ctx context.Context, env *Env) error {
	c.systemName = strings.TrimSpace(c.systemName)
	if c.systemName == "" {
		return errors.New("import requires --system")
	}
	sys, err := env.Definition(ctx, c.systemName)
	if err != nil {
		return err
	}
	c.env = env
	c.sys = sys
	if strings.TrimSpace(c.file) == "" {
		c.file = env.Gamelists.PathFor(sys)
	}
	logutil.GetLogger(ctx).Info("starting import",
		zap.String("system", c.systemName),
		zap.String("file", c.file),
	)
	return nil
}

func (c *ImportCommand) Run(ctx context.Context) error {
	res, err := c.env.Gamelists.Import(ctx, c.sys, c.file)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("import completed",
		zap.String("system", c.systemName),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}

func (c *ImportCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("import", func() IRunner { return NewImportCommand() })
}
