// Package sync implements the "views sync" command.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/thelabnyc/pgviews"
	"github.com/thelabnyc/pgviews/cmd/util"
	"github.com/thelabnyc/pgviews/internal/utils"
	"github.com/thelabnyc/pgviews/view"
)

// New builds the sync command over the application's view registry.
func New(reg *view.Registry) *cobra.Command {
	var (
		host     string
		port     int
		db       string
		user     string
		password string
		force    bool
		noUpdate bool
	)

	cmd := &cobra.Command{
		Use:          "sync",
		Short:        "Create or update all declared views in dependency order",
		Long:         "Create or update every declared view. Views are placed only after the views they depend on, and existing views are replaced in place unless --no-update is given.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := utils.Connect(&utils.ConnectionConfig{
				Host:            host,
				Port:            port,
				Database:        db,
				User:            user,
				Password:        password,
				ApplicationName: "pgviews",
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			return pgviews.Sync(cmd.Context(), conn, reg, pgviews.SyncOptions{
				Force:  force,
				Update: !noUpdate,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Database server host (env: PGHOST)")
	cmd.Flags().IntVar(&port, "port", 5432, "Database server port (env: PGPORT)")
	cmd.Flags().StringVar(&db, "db", "", "Database name (required) (env: PGDATABASE)")
	cmd.Flags().StringVar(&user, "user", "", "Database user name (required) (env: PGUSER)")
	cmd.Flags().StringVar(&password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	cmd.Flags().BoolVar(&force, "force", false, "Force replacement of pre-existing views where breaking changes have been made to the schema")
	cmd.Flags().BoolVar(&noUpdate, "no-update", false, "Don't update existing views, only create new ones")
	cmd.PreRunE = util.PreRunEWithEnvVars(&db, &user, &host, &password, &port)

	return cmd
}
