package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkhodaee16/ecb-bot/models"
)

type PositionRepository struct {
	conn sqlx.ExtContext
}

func NewPositionRepository(conn sqlx.ExtContext) PositionRepo {
	return &PositionRepository{conn: conn}
}

func (r *PositionRepository) Store(ctx context.Context, m *models.Position) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC()

	id, err := insert(ctx, r.conn, "INSERT INTO positions (account_id,signal_id,ticket,symbol,order_kind,volume,price_open,stop_loss,take_profit,price_close,profit,status,created_at,closed_at) VALUES (:account_id,:signal_id,:ticket,:symbol,:order_kind,:volume,:price_open,:stop_loss,:take_profit,:price_close,:profit,:status,:created_at,:closed_at)", m)
	if err != nil {
		return err
	}
	m.ID = id

	return nil
}

// Update persists every field that may change after creation. The write only
// applies if the row still has the version m was read with, otherwise it
// fails with models.ErrStale.
func (r *PositionRepository) Update(ctx context.Context, m *models.Position) error {
	if m.ClosedAt != nil {
		t := m.ClosedAt.UTC()
		m.ClosedAt = &t
	}

	res, err := sqlx.NamedExecContext(ctx, r.conn, "UPDATE positions SET price_open = :price_open, stop_loss = :stop_loss, take_profit = :take_profit, price_close = :price_close, profit = :profit, status = :status, closed_at = :closed_at, version = version + 1 WHERE id = :id AND version = :version", m)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var id int64
		if err := sqlx.GetContext(ctx, r.conn, &id, r.conn.Rebind("SELECT id FROM positions WHERE id = ?"), m.ID); err != nil {
			return notFound(err, "position %d", m.ID)
		}
		return errors.Wrapf(models.ErrStale, "position %d", m.ID)
	}
	m.Version++

	return nil
}

func (r *PositionRepository) GetByID(ctx context.Context, id int64) (*models.Position, error) {
	var position models.Position
	if err := sqlx.GetContext(ctx, r.conn, &position, r.conn.Rebind("SELECT * FROM positions WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "position %d", id)
	}

	return &position, nil
}

func (r *PositionRepository) GetByTicket(ctx context.Context, ticket int64) (*models.Position, error) {
	var position models.Position
	if err := sqlx.GetContext(ctx, r.conn, &position, r.conn.Rebind("SELECT * FROM positions WHERE ticket = ?"), ticket); err != nil {
		return nil, notFound(err, "ticket %d", ticket)
	}

	return &position, nil
}

// GetActive returns every Pending or Open position.
func (r *PositionRepository) GetActive(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := sqlx.SelectContext(ctx, r.conn, &positions,
		r.conn.Rebind("SELECT * FROM positions WHERE status IN (?, ?) ORDER BY id"),
		models.StatusPending, models.StatusOpen); err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *PositionRepository) GetPendingBySymbol(ctx context.Context, symbol string) ([]models.Position, error) {
	var positions []models.Position
	if err := sqlx.SelectContext(ctx, r.conn, &positions,
		r.conn.Rebind("SELECT * FROM positions WHERE symbol = ? AND status = ? ORDER BY id"),
		symbol, models.StatusPending); err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *PositionRepository) GetAll(ctx context.Context, limit int) ([]models.Position, error) {
	var positions []models.Position
	if err := sqlx.SelectContext(ctx, r.conn, &positions,
		r.conn.Rebind("SELECT * FROM positions ORDER BY created_at DESC, id DESC LIMIT ?"), limit); err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *PositionRepository) GetCreatedWithInterval(ctx context.Context, sTime, eTime time.Time) ([]models.Position, error) {
	var positions []models.Position
	if err := sqlx.SelectContext(ctx, r.conn, &positions,
		r.conn.Rebind("SELECT * FROM positions WHERE created_at > ? AND created_at < ? ORDER BY id"),
		sTime.UTC(), eTime.UTC()); err != nil {
		return nil, err
	}

	return positions, nil
}
