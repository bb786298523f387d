package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// LaunchCommand runs a game through its system command and records the play.
type LaunchCommand struct {
	systemName string
	path       string

	env    *Env
	sys    *system.Definition
	fileID string
	exec   func(ctx context.Context, cmdline string) error
	now    func() time.Time
}

func NewLaunchCommand() *LaunchCommand {
	return &LaunchCommand{exec: runShell, now: time.Now}
}

func (c *LaunchCommand) Name() string { return "launch" }

func (c *LaunchCommand) Desc() string {
	return "启动游戏并记录游玩次数与时间"
}

func (c *LaunchCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称")
	f.StringVar(&c.path, "path", "", "游戏标识或绝对路径")
}

func (c *LaunchCommand) PreRun(ctx context.Context, env *Env) error {
	c.systemName = strings.TrimSpace(c.systemName)
	if c.systemName == "" {
		return errors.New("launch requires --system")
	}
	if strings.TrimSpace(c.path) == "" {
		return errors.New("launch requires --path")
	}
	sys, err := env.Definition(ctx, c.systemName)
	if err != nil {
		return err
	}
	id, err := resolveFileID(sys, c.path)
	if err != nil {
		return err
	}
	c.env = env
	c.sys = sys
	c.fileID = id
	logutil.GetLogger(ctx).Info("starting launch",
		zap.String("system", c.systemName),
		zap.String("game", id),
	)
	return nil
}

func (c *LaunchCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	if _, err := c.env.Store.PopulateFromFilesystem(ctx, c.sys); err != nil {
		return err
	}
	_, kind, err := c.env.Store.GetMetadata(ctx, c.fileID, c.sys.Name())
	if err != nil {
		return err
	}
	if kind != db.Game {
		return fmt.Errorf("%s is a %s, not a game", c.fileID, kind)
	}
	romPath := pathid.ToAbsolutePath(c.fileID, c.sys.RootPath())
	cmdline := c.sys.LaunchCommand(romPath)
	logger.Info("running launch command", zap.String("command", cmdline))
	runErr := c.exec(ctx, cmdline)
	if runErr != nil {
		logger.Warn("launch command failed", zap.String("command", cmdline), zap.Error(runErr))
	}
	if err := recordPlay(ctx, c.env, c.sys, c.fileID, c.now()); err != nil {
		return err
	}
	logger.Info("launch completed", zap.String("game", c.fileID))
	return runErr
}

func (c *LaunchCommand) PostRun(ctx context.Context) error { return nil }

// recordPlay bumps the play statistics of a game and writes them back to
// the system's gamelist.
func recordPlay(ctx context.Context, env *Env, sys *system.Definition, fileID string, at time.Time) error {
	rec, kind, err := env.Store.GetMetadata(ctx, fileID, sys.Name())
	if err != nil {
		return err
	}
	count, err := rec.GetInt("playcount")
	if err != nil {
		return err
	}
	if err := rec.SetInt("playcount", count+1); err != nil {
		return err
	}
	if err := rec.SetTime("lastplayed", at); err != nil {
		return err
	}
	if err := env.Store.SetMetadata(ctx, fileID, sys.Name(), kind, rec); err != nil {
		return err
	}
	return env.Gamelists.Update(ctx, sys)
}

func runShell(ctx context.Context, cmdline string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func init() {
	RegisterRunner("launch", func() IRunner { return NewLaunchCommand() })
}
