package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-mem-bank/internal/config"
	"github.com/JoeShih716/go-mem-bank/pkg/logger"
)

// rootOptions 所有子命令共用的 flag
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "bank",
		Short:         "In-memory bank: accounts, deposits, withdrawals and transfers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (env BANK_* overrides it)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newDemoCmd(opts),
		newBenchCmd(opts),
		newAuditCmd(opts),
	)
	return cmd
}

// loadConfig 讀取設定並套用 --log-level
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// consoleLogger CLI 類命令 (demo/bench) 用，預設只顯示 warn 以上避免蓋掉輸出
func (o *rootOptions) consoleLogger() (*zap.Logger, error) {
	level := o.logLevel
	if level == "" {
		level = "warn"
	}
	return logger.NewConsole(level)
}
