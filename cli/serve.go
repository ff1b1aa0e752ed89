package cli

import (
	"github.com/spf13/cobra"

	"recordbin/app"
	"recordbin/logging"
	"recordbin/server"
)

// NewServeCommand 启动 HTTP 服务，SIGINT/SIGTERM 触发优雅关闭
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			logger.Info(cmd.Context(), "config loaded", logging.String("config", cfg.String()))
			engine := server.NewEngine(app.NewService(cfg, logger), logger,
				server.WithVersion(version),
				server.WithShutdownTimeout(cfg.HTTP.Timeout.Shutdown),
			)
			return engine.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&version, "version-tag", "dev", "version reported in logs")
	return cmd
}
