package mongo

import (
	"context"

	"github.com/mkhodaee16/ecb-bot/internal/repository/mongo/structs"
)

//go:generate mockery --case=snake --name=SettingsRepo

type SettingsRepo interface {
	SetDefault(ctx context.Context, defaults []structs.Settings) error
	Load(ctx context.Context, symbol string) (*structs.Settings, error)
	List(ctx context.Context) ([]structs.Settings, error)
	Save(ctx context.Context, settings *structs.Settings) error
	UpdateStatus(ctx context.Context, symbol string, status structs.SymbolStatus) error
}
