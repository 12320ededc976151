// Package cli is the terminal front end of the dashboard: a cobra command
// tree that either serves the JSON surface or runs one dashboard action and
// prints the resulting view model.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/boddenberg/orders-dashboard-go/internal/config"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// New creates the root command.
func New(cfg *config.Config, version string) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Orders analytics dashboard core",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	// One-shot commands keep their token in a file so it survives between runs.
	oneShot := func(cmd *cobra.Command) *deps {
		level := "warn"
		if verbose {
			level = "debug"
		}
		path := cfg.SessionFile
		if path == "" {
			path = defaultSessionFile()
		}
		logger := observability.NewCLILogger(level)
		return build(cmd.Context(), cfg, logger, sessionStore(path, cfg.SessionKey))
	}

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newLoginCmd(oneShot))
	root.AddCommand(newLogoutCmd(oneShot))
	root.AddCommand(newSessionCmd(oneShot))
	root.AddCommand(newLoadCmd(oneShot))
	root.AddCommand(newSyncCmd(oneShot))
	root.AddCommand(newUploadCmd(oneShot))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func syncLogger(l *zap.Logger) {
	_ = l.Sync()
}
