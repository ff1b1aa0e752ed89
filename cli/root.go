// Package cli recordbin 命令行：serve、migrate 以及回收站运维命令
package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"recordbin/app"
	"recordbin/config"
	"recordbin/domain/record"
	"recordbin/logging"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Format     string // text|json
	ActorID    int64
	Elevated   bool
}

// ValidFormats 允许的输出格式
var ValidFormats = []string{"text", "json"}

// Actor 命令行操作人
func (o *RootOptions) Actor() record.Actor {
	return record.Actor{ID: o.ActorID, Elevated: o.Elevated}
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recordbin",
		Short: "recordbin - soft delete, trash and restore for invoicing records",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultFile, "config file path")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().Int64Var(&opts.ActorID, "actor", 0, "acting user id")
	cmd.PersistentFlags().BoolVar(&opts.Elevated, "elevated", false, "act with elevated privileges")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTrashCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewTrashListCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))

	return cmd
}

// setup 加载配置并安装全局 Logger，日志写到 stderr 以免污染 JSON 输出
func setup(cmd *cobra.Command, opts *RootOptions) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	logging.SetLogger(logger)
	return cfg, logger, nil
}

// withApp 组装 App 后执行 fn；本进程只发布事件，同步传输除外
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	if opts.ActorID <= 0 {
		return fmt.Errorf("--actor is required")
	}
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if err := a.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
