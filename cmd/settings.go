package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	mongorepo "github.com/mkhodaee16/ecb-bot/internal/repository/mongo"
	mongostructs "github.com/mkhodaee16/ecb-bot/internal/repository/mongo/structs"
)

var errNoMongo = errors.New("MONGO_URI is not configured")

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change per-symbol trailing settings",
	}

	repo := func() (mongorepo.SettingsRepo, error) {
		if app.Mongo == nil {
			return nil, errNoMongo
		}
		return mongorepo.NewSettingsRepository(app.Mongo, app.Config.Mongo.DBName), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every symbol override",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := repo()
			if err != nil {
				return err
			}

			list, err := r.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\ttrail=%g\tmultiplier=%g\t%s\n",
					s.Symbol, s.TrailDistance, s.ProfitMultiplier, s.Status.ToString())
			}
			return nil
		},
	})

	var trail, multiplier float64
	setCmd := &cobra.Command{
		Use:   "set SYMBOL",
		Short: "Store the trail distance and profit multiplier of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trail < 0 || multiplier < 0 {
				return errors.New("values must not be negative")
			}

			r, err := repo()
			if err != nil {
				return err
			}

			return r.Save(cmd.Context(), &mongostructs.Settings{
				Symbol:           strings.ToUpper(args[0]),
				TrailDistance:    trail,
				ProfitMultiplier: multiplier,
				Status:           mongostructs.Enabled,
			})
		},
	}
	setCmd.Flags().Float64Var(&trail, "trail", 0, "trailing distance in price units, 0 uses the default")
	setCmd.Flags().Float64Var(&multiplier, "multiplier", 0, "profit per price unit per lot, 0 uses the default")

	status := func(use string, to mongostructs.SymbolStatus) *cobra.Command {
		return &cobra.Command{
			Use:   use + " SYMBOL",
			Short: "Mark the symbol " + to.ToString(),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := repo()
				if err != nil {
					return err
				}
				return r.UpdateStatus(cmd.Context(), strings.ToUpper(args[0]), to)
			},
		}
	}

	cmd.AddCommand(setCmd, status("enable", mongostructs.Enabled), status("disable", mongostructs.Disabled))

	return cmd
}
