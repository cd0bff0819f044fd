package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
)

func (a *App) InitDB(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, a.Config.DB.Driver, a.Config.DB.DSN())
	if err != nil {
		return err
	}
	if a.Config.DB.Driver == sqlstore.DriverSQLite {
		// sqlite allows one writer
		db.SetMaxOpenConns(1)
	}

	a.DB = db

	a.Logger.
		WithField("driver", a.Config.DB.Driver).
		Info("database connected")

	return sqlstore.Migrate(ctx, db)
}
