package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkhodaee16/ecb-bot/models"
)

type TradeLogRepository struct {
	conn sqlx.ExtContext
}

func NewTradeLogRepository(conn sqlx.ExtContext) TradeLogRepo {
	return &TradeLogRepository{conn: conn}
}

func (r *TradeLogRepository) Store(ctx context.Context, m *models.TradeLog) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC()

	id, err := insert(ctx, r.conn, "INSERT INTO trade_logs (account_id,position_id,ticket,symbol,action,order_kind,volume,price,stop_loss,take_profit,created_at) VALUES (:account_id,:position_id,:ticket,:symbol,:action,:order_kind,:volume,:price,:stop_loss,:take_profit,:created_at)", m)
	if err != nil {
		return err
	}
	m.ID = id

	return nil
}

func (r *TradeLogRepository) GetAll(ctx context.Context, limit int) ([]models.TradeLog, error) {
	var logs []models.TradeLog
	if err := sqlx.SelectContext(ctx, r.conn, &logs,
		r.conn.Rebind("SELECT * FROM trade_logs ORDER BY id DESC LIMIT ?"), limit); err != nil {
		return nil, err
	}

	return logs, nil
}
