// Package refresh implements the "views refresh" command.
package refresh

import (
	"github.com/spf13/cobra"

	"github.com/thelabnyc/pgviews"
	"github.com/thelabnyc/pgviews/cmd/util"
	"github.com/thelabnyc/pgviews/internal/utils"
	"github.com/thelabnyc/pgviews/view"
)

// New builds the refresh command over the application's view registry.
func New(reg *view.Registry) *cobra.Command {
	var (
		host         string
		port         int
		db           string
		user         string
		password     string
		concurrently bool
		jobs         int
	)

	cmd := &cobra.Command{
		Use:          "refresh [view...]",
		Short:        "Refresh materialized views",
		Long:         "Refresh the named materialized views, or every declared materialized view when no names are given. Independent refreshes run in parallel under --jobs.",
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

			return pgviews.Refresh(cmd.Context(), conn, reg, pgviews.RefreshOptions{
				Names:        args,
				Concurrently: concurrently,
				Jobs:         jobs,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Database server host (env: PGHOST)")
	cmd.Flags().IntVar(&port, "port", 5432, "Database server port (env: PGPORT)")
	cmd.Flags().StringVar(&db, "db", "", "Database name (required) (env: PGDATABASE)")
	cmd.Flags().StringVar(&user, "user", "", "Database user name (required) (env: PGUSER)")
	cmd.Flags().StringVar(&password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	cmd.Flags().BoolVar(&concurrently, "concurrently", false, "Refresh without locking out readers (requires a concurrent-refresh index)")
	cmd.Flags().IntVar(&jobs, "jobs", 1, "Number of views to refresh in parallel")
	cmd.PreRunE = util.PreRunEWithEnvVars(&db, &user, &host, &password, &port)

	return cmd
}
