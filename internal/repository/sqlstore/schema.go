package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// %[1]s is the driver specific auto-increment primary key column.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id %[1]s,
	login TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	server TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	volume_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS restricted_symbols (
	id %[1]s,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id %[1]s,
	request_id TEXT NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL DEFAULT '',
	order_type TEXT NOT NULL DEFAULT '',
	volume DOUBLE PRECISION NOT NULL DEFAULT 0,
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	stop_loss DOUBLE PRECISION,
	take_profit DOUBLE PRECISION,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id %[1]s,
	account_id BIGINT REFERENCES accounts(id),
	signal_id BIGINT REFERENCES signals(id),
	ticket BIGINT UNIQUE,
	symbol TEXT NOT NULL,
	order_kind TEXT NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	price_open DOUBLE PRECISION NOT NULL,
	stop_loss DOUBLE PRECISION,
	take_profit DOUBLE PRECISION,
	price_close DOUBLE PRECISION,
	profit DOUBLE PRECISION,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	closed_at TIMESTAMP,
	version BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS positions_status_idx ON positions (status, symbol);

CREATE TABLE IF NOT EXISTS trade_logs (
	id %[1]s,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	position_id BIGINT NOT NULL REFERENCES positions(id),
	ticket BIGINT NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	order_kind TEXT NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	stop_loss DOUBLE PRECISION,
	take_profit DOUBLE PRECISION,
	created_at TIMESTAMP NOT NULL
);
`

func primaryKey(driver string) string {
	if driver == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	ddl := fmt.Sprintf(schema, primaryKey(db.DriverName()))

	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}

	return nil
}
