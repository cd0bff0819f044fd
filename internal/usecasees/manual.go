package usecasees

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

// positionUseCase serves the manual close/modify/cancel operations. Each one
// mutates the row only after the broker acknowledged the change.
type positionUseCase struct {
	store     sqlstore.Store
	guard     SessionGuard
	settings  *SettingsResolver
	notifier  *Notifier
	publisher Publisher

	logger *logrus.Logger
	now    func() time.Time
}

func NewPositionUseCase(
	store sqlstore.Store,
	guard SessionGuard,
	settings *SettingsResolver,
	notifier *Notifier,
	publisher Publisher,
	logger *logrus.Logger,
) *positionUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &positionUseCase{
		store:     store,
		guard:     guard,
		settings:  settings,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Close market-exits an Open position.
func (u *positionUseCase) Close(ctx context.Context, ticket int64) (*models.Position, error) {
	p, account, err := u.load(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusOpen {
		return nil, errors.Wrapf(models.ErrInvalidState, "ticket %d is %s, only Open positions can be closed", ticket, p.Status)
	}

	var price float64
	err = u.guard.WithSession(ctx, account, func(ctx context.Context, s gateway.Session) error {
		var err error
		price, err = s.ClosePosition(ctx, gateway.CloseRequest{
			Ticket: ticket,
			Symbol: p.Symbol,
			Kind:   p.Kind,
			Volume: p.Volume,
		})
		if err != nil || price > 0 {
			return err
		}

		q, err := s.Quote(ctx, p.Symbol)
		if err != nil {
			return err
		}
		price = p.Kind.ReferencePrice(q.Bid, q.Ask)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tun := u.settings.For(ctx, p.Symbol)
	if err := p.Close(price, tun.ProfitMultiplier, u.now()); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, p); err != nil {
		return nil, err
	}

	u.notifier.positionClosed(p)
	u.emit(p, models.StatusOpen, price)

	return p, nil
}

// Modify changes the stop levels, and the entry price of a Pending order.
// Fields left nil keep their current value, a zero level removes it.
func (u *positionUseCase) Modify(ctx context.Context, ticket int64, in *structs.ModifyPayload) (*models.Position, error) {
	p, account, err := u.load(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, errors.Wrapf(models.ErrInvalidState, "ticket %d is %s", ticket, p.Status)
	}

	sl, tp := p.StopLoss, p.TakeProfit
	if in.StopLoss != nil {
		sl = level(*in.StopLoss)
	}
	if in.TakeProfit != nil {
		tp = level(*in.TakeProfit)
	}

	req := gateway.ModifyRequest{Ticket: ticket, Symbol: p.Symbol, StopLoss: sl, TakeProfit: tp}
	price := p.OpenPrice
	if in.Price != nil && p.Status == models.StatusPending {
		if *in.Price <= 0 {
			return nil, errors.Wrapf(models.ErrValidation, "invalid price %g", *in.Price)
		}
		price = *in.Price
		req.Price = &price
	}

	err = u.guard.WithSession(ctx, account, func(ctx context.Context, s gateway.Session) error {
		return s.Modify(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	p.StopLoss, p.TakeProfit, p.OpenPrice = sl, tp, price
	if err := u.commit(ctx, p); err != nil {
		return nil, err
	}

	u.logger.
		WithField("method", "Modify").
		WithField("ticket", ticket).
		Info("position modified")

	return p, nil
}

// Cancel removes a Pending order. Any other status fails with
// ErrInvalidState before the broker is contacted.
func (u *positionUseCase) Cancel(ctx context.Context, ticket int64) (*models.Position, error) {
	p, account, err := u.load(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusPending {
		return nil, errors.Wrapf(models.ErrInvalidState, "ticket %d is %s, only Pending orders can be cancelled", ticket, p.Status)
	}

	err = u.guard.WithSession(ctx, account, func(ctx context.Context, s gateway.Session) error {
		return s.Cancel(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	if err := p.Cancel(u.now()); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, p); err != nil {
		return nil, err
	}

	u.emit(p, models.StatusPending, 0)

	return p, nil
}

// load resolves the position and the account whose session owns its ticket.
func (u *positionUseCase) load(ctx context.Context, ticket int64) (*models.Position, *models.Account, error) {
	p, err := u.store.Positions().GetByTicket(ctx, ticket)
	if err != nil {
		return nil, nil, err
	}

	if p.AccountID != nil {
		account, err := u.store.Accounts().GetByID(ctx, *p.AccountID)
		if err != nil {
			return nil, nil, err
		}
		return p, account, nil
	}

	accounts, err := u.store.Accounts().ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(accounts) == 0 {
		return nil, nil, errors.Wrapf(models.ErrGateway, "no active account for ticket %d", ticket)
	}

	return p, &accounts[0], nil
}

func (u *positionUseCase) commit(ctx context.Context, p *models.Position) error {
	// the broker already applied the change, record it even if the caller went away
	ctx = context.WithoutCancel(ctx)

	err := u.store.InTx(ctx, func(r sqlstore.Repos) error {
		return r.Positions().Update(ctx, p)
	})
	if errors.Is(err, models.ErrStale) {
		return errors.Wrapf(err, "ticket %d was changed by another writer", p.TicketValue())
	}

	return err
}

func (u *positionUseCase) emit(p *models.Position, from models.PositionStatus, price float64) {
	u.publisher.Publish(telemetry.EventStatusChanged, structs.StatusChanged{
		PositionID: p.ID,
		Ticket:     p.TicketValue(),
		Symbol:     p.Symbol,
		From:       from,
		To:         p.Status,
		Price:      price,
	})

	u.logger.
		WithField("ticket", p.TicketValue()).
		WithField("symbol", p.Symbol).
		Infof("position %s -> %s by operator", from, p.Status)
}
