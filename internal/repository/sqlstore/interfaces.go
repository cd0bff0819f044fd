package sqlstore

import (
	"context"
	"time"

	"github.com/mkhodaee16/ecb-bot/models"
)

type AccountRepo interface {
	List(ctx context.Context) ([]models.Account, error)
	ListActive(ctx context.Context) ([]models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	Upsert(ctx context.Context, m *models.Account) error
	SetRestricted(ctx context.Context, accountID int64, symbols []string) error
}

type PositionRepo interface {
	Store(ctx context.Context, m *models.Position) error
	Update(ctx context.Context, m *models.Position) error
	GetByID(ctx context.Context, id int64) (*models.Position, error)
	GetByTicket(ctx context.Context, ticket int64) (*models.Position, error)
	GetActive(ctx context.Context) ([]models.Position, error)
	GetPendingBySymbol(ctx context.Context, symbol string) ([]models.Position, error)
	GetAll(ctx context.Context, limit int) ([]models.Position, error)
	GetCreatedWithInterval(ctx context.Context, sTime, eTime time.Time) ([]models.Position, error)
}

type SignalRepo interface {
	Store(ctx context.Context, m *models.Signal) error
	SetStatus(ctx context.Context, id int64, status models.SignalStatus, errMsg string) error
	GetByID(ctx context.Context, id int64) (*models.Signal, error)
	GetAll(ctx context.Context, limit int) ([]models.Signal, error)
}

type TradeLogRepo interface {
	Store(ctx context.Context, m *models.TradeLog) error
	GetAll(ctx context.Context, limit int) ([]models.TradeLog, error)
}

type Repos interface {
	Accounts() AccountRepo
	Positions() PositionRepo
	Signals() SignalRepo
	TradeLogs() TradeLogRepo
}

// Store is the system of record. InTx runs fn against repositories bound to
// one transaction and commits only if fn returns nil.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}
