// Package clear implements the "views clear" command.
package clear

import (
	"github.com/spf13/cobra"

	"github.com/thelabnyc/pgviews"
	"github.com/thelabnyc/pgviews/cmd/util"
	"github.com/thelabnyc/pgviews/internal/utils"
	"github.com/thelabnyc/pgviews/view"
)

// New builds the clear command over the application's view registry.
func New(reg *view.Registry) *cobra.Command {
	var (
		host     string
		port     int
		db       string
		user     string
		password string
	)

	cmd := &cobra.Command{
		Use:          "clear",
		Short:        "Drop all declared views",
		Long:         "Drop every declared view unconditionally (with CASCADE). Use this before schema changes the migration analyzer cannot see.",
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

			return pgviews.Clear(cmd.Context(), conn, reg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Database server host (env: PGHOST)")
	cmd.Flags().IntVar(&port, "port", 5432, "Database server port (env: PGPORT)")
	cmd.Flags().StringVar(&db, "db", "", "Database name (required) (env: PGDATABASE)")
	cmd.Flags().StringVar(&user, "user", "", "Database user name (required) (env: PGUSER)")
	cmd.Flags().StringVar(&password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	cmd.PreRunE = util.PreRunEWithEnvVars(&db, &user, &host, &password, &port)

	return cmd
}
