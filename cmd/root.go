// Package cmd builds the embeddable pgviews command tree. Host applications
// register their view definitions and mount the root command in their own
// binaries.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	clearcmd "github.com/thelabnyc/pgviews/cmd/clear"
	refreshcmd "github.com/thelabnyc/pgviews/cmd/refresh"
	synccmd "github.com/thelabnyc/pgviews/cmd/sync"
	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/internal/version"
	"github.com/thelabnyc/pgviews/view"
)

// NewRootCmd builds the "views" command tree over the application's view
// registry.
func NewRootCmd(reg *view.Registry) *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "views",
		Short: "Manage PostgreSQL views declared by this application",
		Long: fmt.Sprintf(`Manage PostgreSQL views declared by this application.

Version: %s %s %s

Commands:
  sync     Create or update all declared views in dependency order
  clear    Drop all declared views
  refresh  Refresh materialized views

Use "views [command] --help" for more information about a command.`,
			version.Version(), version.Platform(), version.GetBuildDate()),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(debug)
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.AddCommand(synccmd.New(reg))
	root.AddCommand(clearcmd.New(reg))
	root.AddCommand(refreshcmd.New(reg))
	root.AddCommand(newVersionCmd())
	return root
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger.SetGlobal(slog.New(handler), debug)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pgviews %s@%s %s %s\n",
				version.Version(), version.GetGitCommit(), version.Platform(), version.GetBuildDate())
		},
	}
}
