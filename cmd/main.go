package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		app          App
		confFileName string
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "Relays trade signals to broker accounts and manages the resulting positions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app.initLogger()
			return app.init(cmd.Context(), confFileName)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			app.Close()
		},
	}
	root.PersistentFlags().StringVar(&confFileName, "config", ".env", "path to the .env file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the webhook API, live channel and reconciliation loop",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				// InitDB already migrated
				app.Logger.WithField("driver", app.Config.DB.Driver).Info("schema up to date")
				return nil
			},
		},
		newAccountsCmd(&app),
		newSettingsCmd(&app),
	)

	return root
}
