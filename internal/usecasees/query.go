package usecasees

import (
	"context"

	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/models"
)

const defaultLimit = 200

type queryUseCase struct {
	store sqlstore.Store
}

func NewQueryUseCase(store sqlstore.Store) *queryUseCase {
	return &queryUseCase{store: store}
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultLimit
	}
	return limit
}

func (u *queryUseCase) Positions(ctx context.Context, limit int) ([]models.Position, error) {
	return u.store.Positions().GetAll(ctx, limitOrDefault(limit))
}

func (u *queryUseCase) ActivePositions(ctx context.Context) ([]models.Position, error) {
	return u.store.Positions().GetActive(ctx)
}

func (u *queryUseCase) Position(ctx context.Context, id int64) (*models.Position, error) {
	return u.store.Positions().GetByID(ctx, id)
}

func (u *queryUseCase) Signals(ctx context.Context, limit int) ([]models.Signal, error) {
	return u.store.Signals().GetAll(ctx, limitOrDefault(limit))
}

func (u *queryUseCase) Signal(ctx context.Context, id int64) (*models.Signal, error) {
	return u.store.Signals().GetByID(ctx, id)
}

func (u *queryUseCase) Accounts(ctx context.Context) ([]models.Account, error) {
	return u.store.Accounts().List(ctx)
}

func (u *queryUseCase) TradeLogs(ctx context.Context, limit int) ([]models.TradeLog, error) {
	return u.store.TradeLogs().GetAll(ctx, limitOrDefault(limit))
}
