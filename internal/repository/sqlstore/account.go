package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkhodaee16/ecb-bot/models"
)

type AccountRepository struct {
	conn sqlx.ExtContext
}

func NewAccountRepository(conn sqlx.ExtContext) AccountRepo {
	return &AccountRepository{conn: conn}
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := sqlx.SelectContext(ctx, r.conn, &accounts, "SELECT * FROM accounts ORDER BY id"); err != nil {
		return nil, err
	}

	return r.withRestricted(ctx, accounts)
}

func (r *AccountRepository) ListActive(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := sqlx.SelectContext(ctx, r.conn, &accounts, r.conn.Rebind("SELECT * FROM accounts WHERE is_active = ? ORDER BY id"), true); err != nil {
		return nil, err
	}

	return r.withRestricted(ctx, accounts)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := sqlx.GetContext(ctx, r.conn, &account, r.conn.Rebind("SELECT * FROM accounts WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "account %d", id)
	}

	out, err := r.withRestricted(ctx, []models.Account{account})
	if err != nil {
		return nil, err
	}

	return &out[0], nil
}

// Upsert inserts the account or updates the row with the same login.
func (r *AccountRepository) Upsert(ctx context.Context, m *models.Account) error {
	var id int64
	err := sqlx.GetContext(ctx, r.conn, &id, r.conn.Rebind("SELECT id FROM accounts WHERE login = ?"), m.Login)
	switch {
	case err == nil:
		m.ID = id
		_, err = sqlx.NamedExecContext(ctx, r.conn,
			"UPDATE accounts SET password = :password, server = :server, name = :name, volume_multiplier = :volume_multiplier, is_active = :is_active WHERE id = :id", m)
		return err
	case errors.Is(err, sql.ErrNoRows):
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		m.ID, err = insert(ctx, r.conn,
			"INSERT INTO accounts (login,password,server,name,volume_multiplier,is_active,created_at) VALUES (:login,:password,:server,:name,:volume_multiplier,:is_active,:created_at)", m)
		return err
	default:
		return err
	}
}

// SetRestricted replaces the account's restricted symbol set.
func (r *AccountRepository) SetRestricted(ctx context.Context, accountID int64, symbols []string) error {
	if _, err := r.conn.ExecContext(ctx, r.conn.Rebind("DELETE FROM restricted_symbols WHERE account_id = ?"), accountID); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, err := r.conn.ExecContext(ctx,
			r.conn.Rebind("INSERT INTO restricted_symbols (account_id,symbol,created_at) VALUES (?,?,?)"),
			accountID, symbol, now); err != nil {
			return err
		}
	}

	return nil
}

func (r *AccountRepository) withRestricted(ctx context.Context, accounts []models.Account) ([]models.Account, error) {
	if len(accounts) == 0 {
		return accounts, nil
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}

	query, args, err := sqlx.In("SELECT account_id, symbol FROM restricted_symbols WHERE account_id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		AccountID int64  `db:"account_id"`
		Symbol    string `db:"symbol"`
	}
	if err := sqlx.SelectContext(ctx, r.conn, &rows, r.conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	bySymbol := make(map[int64][]string, len(accounts))
	for _, row := range rows {
		bySymbol[row.AccountID] = append(bySymbol[row.AccountID], row.Symbol)
	}
	for i := range accounts {
		accounts[i].Restricted = bySymbol[accounts[i].ID]
	}

	return accounts, nil
}
