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

// ExportCommand writes a fresh gamelist document for one system.
type ExportCommand struct {
	systemName string
	file       string

	env *Env
	sys *system.Definition
}

func NewExportCommand() *ExportCommand { return &ExportCommand{} }

func (c *ExportCommand) Name() string { return "export" }

func (c *ExportCommand) Desc() string {
	return "从数据库导出 gamelist.xml"
}

func (c *ExportCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称")
	f.StringVar(&c.file, "file", "", "输出文件路径")
}

func (c *ExportCommand) PreRun(ctx context.Context, env *Env) error {
	c.systemName = strings.TrimSpace(c.systemName)
	c.file = strings.TrimSpace(c.file)
	if c.systemName == "" {
		return errors.New("export requires --system")
	}
	if c.file == "" {
		return errors.New("export requires --file")
	}
	sys, err := env.Definition(ctx, c.systemName)
	if err != nil {
		return err
	}
	c.env = env
	c.sys = sys
	logutil.GetLogger(ctx).Info("starting export",
		zap.String("system", c.systemName),
		zap.String("file", c.file),
	)
	return nil
}

func (c *ExportCommand) Run(ctx context.Context) error {
	written, err := c.env.Gamelists.Export(ctx, c.sys, c.file)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("export completed",
		zap.String("system", c.systemName),
		zap.Int("written", written),
	)
	return nil
}

func (c *ExportCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("export", func() IRunner { return NewExportCommand() })
}
