package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recordbin/data/db/basic"
	"recordbin/data/db/migrations"
)

// NewMigrateCommand 执行数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			db, err := basic.New(cfg.Database.DB())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := migrations.Up(cmd.Context(), db.SQL(), cfg.Database.Driver); err != nil {
				return err
			}
			v, err := migrations.Version(cmd.Context(), db.SQL(), cfg.Database.Driver)
			if err != nil {
				return err
			}
			return output(cmd, rootOpts, map[string]int64{"version": v}, func() string {
				return fmt.Sprintf("database at version %d\n", v)
			})
		},
	}
}
