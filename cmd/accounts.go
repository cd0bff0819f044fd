package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/models"
)

type accountsFile struct {
	Accounts []accountEntry `yaml:"accounts"`
}

type accountEntry struct {
	Login      string   `yaml:"login"`
	Password   string   `yaml:"password"`
	Server     string   `yaml:"server"`
	Name       string   `yaml:"name"`
	Multiplier *float64 `yaml:"volume_multiplier"`
	IsActive   bool     `yaml:"is_active"`
	Restricted []string `yaml:"restricted_symbols"`
}

func newAccountsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage broker accounts",
	}

	var fileName string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert accounts by login from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := readAccounts(fileName)
			if err != nil {
				return err
			}

			if err := importAccounts(cmd.Context(), sqlstore.New(app.DB), accounts); err != nil {
				return err
			}

			app.Logger.WithField("accounts", len(accounts)).Info("accounts imported")
			return nil
		},
	}
	importCmd.Flags().StringVar(&fileName, "file", "accounts.yaml", "YAML file with an accounts list")

	cmd.AddCommand(importCmd)

	return cmd
}

func readAccounts(fileName string) ([]models.Account, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var f accountsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", fileName)
	}

	accounts := make([]models.Account, 0, len(f.Accounts))
	seen := map[string]bool{}
	for i, a := range f.Accounts {
		if a.Login == "" || a.Server == "" {
			return nil, errors.Errorf("%s: account %d needs login and server", fileName, i+1)
		}
		if seen[a.Login] {
			return nil, errors.Errorf("%s: duplicate login %s", fileName, a.Login)
		}
		seen[a.Login] = true

		// an absent multiplier trades the signal volume as is, 0 places nothing
		multiplier := 1.0
		if a.Multiplier != nil {
			multiplier = *a.Multiplier
		}
		if multiplier < 0 {
			return nil, errors.Errorf("%s: account %s has negative volume_multiplier %g", fileName, a.Login, multiplier)
		}

		accounts = append(accounts, models.Account{
			Login:      a.Login,
			Password:   a.Password,
			Server:     a.Server,
			Name:       a.Name,
			Multiplier: multiplier,
			IsActive:   a.IsActive,
			Restricted: a.Restricted,
		})
	}

	return accounts, nil
}

// importAccounts upserts every account and replaces its restricted symbols
// in one transaction.
func importAccounts(ctx context.Context, store sqlstore.Store, accounts []models.Account) error {
	return store.InTx(ctx, func(r sqlstore.Repos) error {
		for i := range accounts {
			a := &accounts[i]
			if err := r.Accounts().Upsert(ctx, a); err != nil {
				return errors.Wrapf(err, "upsert %s", a.Login)
			}
			if err := r.Accounts().SetRestricted(ctx, a.ID, a.Restricted); err != nil {
				return errors.Wrapf(err, "restrict %s", a.Login)
			}
		}
		return nil
	})
}
