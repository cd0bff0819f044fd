package usecasees

import (
	"context"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/models"
)

// Publisher pushes events to live UI listeners.
type Publisher interface {
	Publish(event string, payload interface{})
}

// SessionGuard runs fn inside an exclusive gateway session for account.
type SessionGuard interface {
	WithSession(ctx context.Context, account *models.Account, fn func(ctx context.Context, s gateway.Session) error) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}
