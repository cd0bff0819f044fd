package sqlstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkhodaee16/ecb-bot/models"
)

type repos struct {
	conn sqlx.ExtContext
}

func (r repos) Accounts() AccountRepo   { return &AccountRepository{conn: r.conn} }
func (r repos) Positions() PositionRepo { return &PositionRepository{conn: r.conn} }
func (r repos) Signals() SignalRepo     { return &SignalRepository{conn: r.conn} }
func (r repos) TradeLogs() TradeLogRepo { return &TradeLogRepository{conn: r.conn} }

type SQLStore struct {
	repos
	db *sqlx.DB
}

func New(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		repos: repos{conn: db},
		db:    db,
	}
}

func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) InTx(ctx context.Context, fn func(Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repos{conn: tx}); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit tx")
}

// insert runs a named INSERT ... RETURNING id and reports the new id.
func insert(ctx context.Context, conn sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	q, args, err := sqlx.Named(query+" RETURNING id", arg)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := conn.QueryRowxContext(ctx, conn.Rebind(q), args...).Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(models.ErrNotFound, format, args...)
	}
	return err
}
