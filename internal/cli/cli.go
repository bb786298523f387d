package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/app"
	"github.com/xxxsen/gamedeck/internal/config"
	"go.uber.org/zap"
)

var (
	configPath     string
	ignoreGamelist bool
	gamelistOnly   bool
)

var rootCmd = &cobra.Command{
	Use:           "gamedeck",
	Short:         "Keep emulator game libraries, their metadata and gamelist.xml files in sync",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("exec cmd failed", zap.Error(err))
		return err
	}
	return nil
}

func prepareConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("ignore-gamelist") {
		cfg.IgnoreGamelist = ignoreGamelist
	}
	if cmd.Flags().Changed("gamelist-only") {
		cfg.ParseGamelistOnly = gamelistOnly
	}
	return cfg, nil
}

func runWithEnv(cmd *cobra.Command, runner app.IRunner) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cfg, err := prepareConfig(cmd)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.File, cfg.Log.Level, cfg.Log.MaxRotate, cfg.Log.MaxSize, cfg.Log.MaxKeepDays, cfg.Log.Console)
	env, err := app.NewEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logutil.GetLogger(ctx).Error("close file store failed", zap.Error(err))
		}
	}()
	if err := runner.PreRun(ctx, env); err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}
	return runner.PostRun(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "配置文件路径, 默认依次查找 ./config.json, ~/.gamedeck/config.json, /etc/gamedeck/config.json")
	pf.BoolVar(&ignoreGamelist, "ignore-gamelist", false, "不读取也不写入 gamelist.xml")
	pf.BoolVar(&gamelistOnly, "gamelist-only", false, "只从 gamelist.xml 加载, 跳过目录扫描")

	for _, r := range app.RunnerList() {
		runner := app.MustResolveRunner(r)
		subcmd := &cobra.Command{
			Use:   runner.Name(),
			Short: runner.Desc(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithEnv(cmd, runner)
			},
		}
		runner.Init(subcmd.Flags())
		rootCmd.AddCommand(subcmd)
	}
}
