package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkhodaee16/ecb-bot/models"
)

type SignalRepository struct {
	conn sqlx.ExtContext
}

func NewSignalRepository(conn sqlx.ExtContext) SignalRepo {
	return &SignalRepository{conn: conn}
}

func (r *SignalRepository) Store(ctx context.Context, m *models.Signal) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.Status == "" {
		m.Status = models.SignalReceived
	}

	id, err := insert(ctx, r.conn, "INSERT INTO signals (request_id,action,symbol,order_type,volume,price,stop_loss,take_profit,status,error_message,created_at) VALUES (:request_id,:action,:symbol,:order_type,:volume,:price,:stop_loss,:take_profit,:status,:error_message,:created_at)", m)
	if err != nil {
		return err
	}
	m.ID = id

	return nil
}

func (r *SignalRepository) SetStatus(ctx context.Context, id int64, status models.SignalStatus, errMsg string) error {
	res, err := r.conn.ExecContext(ctx, r.conn.Rebind("UPDATE signals SET status = ?, error_message = ? WHERE id = ?"), status, errMsg, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(sql.ErrNoRows, "signal %d", id)
	}

	return nil
}

func (r *SignalRepository) GetByID(ctx context.Context, id int64) (*models.Signal, error) {
	var signal models.Signal
	if err := sqlx.GetContext(ctx, r.conn, &signal, r.conn.Rebind("SELECT * FROM signals WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "signal %d", id)
	}

	return &signal, nil
}

func (r *SignalRepository) GetAll(ctx context.Context, limit int) ([]models.Signal, error) {
	var signals []models.Signal
	if err := sqlx.SelectContext(ctx, r.conn, &signals,
		r.conn.Rebind("SELECT * FROM signals ORDER BY created_at DESC, id DESC LIMIT ?"), limit); err != nil {
		return nil, err
	}

	return signals, nil
}
