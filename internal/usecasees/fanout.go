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

type orderUseCase struct {
	store     sqlstore.Store
	guard     SessionGuard
	notifier  *Notifier
	publisher Publisher
	metrics   *structs.Metrics

	logger *logrus.Logger
	now    func() time.Time
}

func NewOrderUseCase(
	store sqlstore.Store,
	guard SessionGuard,
	notifier *Notifier,
	publisher Publisher,
	metrics *structs.Metrics,
	logger *logrus.Logger,
) *orderUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &orderUseCase{
		store:     store,
		guard:     guard,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

type placement struct {
	account  *models.Account
	position *models.Position
	log      *models.TradeLog
}

// FanOut cancels conflicting pending orders for the symbol and places req on
// every eligible account. Per-account failures are reported in the result,
// only a failure to load or commit state is returned as an error.
func (u *orderUseCase) FanOut(ctx context.Context, req *structs.TradeRequest) (*structs.FanOutResult, error) {
	logger := u.logger.WithField("method", "FanOut").WithField("symbol", req.Symbol)

	accounts, err := u.store.Accounts().ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	eligible := eligibleFor(accounts, req.Symbol)

	pending, err := u.store.Positions().GetPendingBySymbol(ctx, req.Symbol)
	if err != nil {
		return nil, errors.Wrap(err, "load pending positions")
	}

	result := &structs.FanOutResult{Cancelled: []int64{}, Orders: []structs.OrderOutcome{}}

	cancelled := make([]*models.Position, 0, len(pending))
	for i := range pending {
		p := &pending[i]
		u.cancelAtBroker(ctx, p, eligible, logger)

		if err := p.Cancel(u.now()); err != nil {
			logger.WithError(err).Error("cancel pending position")
			continue
		}
		cancelled = append(cancelled, p)
		result.Cancelled = append(result.Cancelled, p.ID)
	}

	var placed []placement
	for i := range eligible {
		account := &eligible[i]

		outcome, pl := u.place(ctx, account, req)
		if pl == nil {
			u.metrics.Inc(structs.MetricOrderFailed)
			logger.
				WithField("account", account.Login).
				WithField("error", outcome.Error).
				Warn("placement failed")
		} else {
			placed = append(placed, *pl)
		}
		result.Orders = append(result.Orders, outcome)
	}

	err = u.store.InTx(ctx, func(r sqlstore.Repos) error {
		for _, p := range cancelled {
			err := r.Positions().Update(ctx, p)
			if errors.Is(err, models.ErrStale) {
				logger.WithField("ticket", p.TicketValue()).Warn("pending position changed before cancel was recorded")
				continue
			}
			if err != nil {
				return err
			}
		}

		for _, pl := range placed {
			if err := r.Positions().Store(ctx, pl.position); err != nil {
				return err
			}
			pl.log.PositionID = pl.position.ID
			if err := r.TradeLogs().Store(ctx, pl.log); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		for _, pl := range placed {
			logger.
				WithField("account", pl.account.Login).
				WithField("ticket", pl.position.TicketValue()).
				Error("order placed at broker but not recorded")
		}
		return nil, errors.Wrap(err, "commit fan-out")
	}

	byTicket := make(map[int64]*models.Position, len(placed))
	for _, pl := range placed {
		byTicket[pl.position.TicketValue()] = pl.position
	}
	for i, o := range result.Orders {
		if p, ok := byTicket[o.Ticket]; ok && o.Success {
			result.Orders[i].PositionID = p.ID
		}
	}

	for _, p := range cancelled {
		u.metrics.Inc(structs.MetricOrderCancelled)
		u.notifier.positionReplaced(p)
		u.publisher.Publish(telemetry.EventStatusChanged, structs.StatusChanged{
			PositionID: p.ID,
			Ticket:     p.TicketValue(),
			Symbol:     p.Symbol,
			From:       models.StatusPending,
			To:         p.Status,
		})
	}
	for _, pl := range placed {
		u.metrics.Inc(structs.MetricOrderPlaced)
		u.notifier.positionOpened(pl.account, pl.position)
	}

	return result, nil
}

// cancelAtBroker removes the resting order on every account that may hold
// it. Failures are logged only, a stale pending order must not block the
// new signal.
func (u *orderUseCase) cancelAtBroker(ctx context.Context, p *models.Position, eligible []models.Account, logger *logrus.Entry) {
	if p.Ticket == nil {
		return
	}

	for _, account := range targetsFor(p, eligible) {
		account := account
		err := u.guard.WithSession(ctx, &account, func(ctx context.Context, s gateway.Session) error {
			return s.Cancel(ctx, *p.Ticket)
		})
		if err != nil {
			logger.
				WithField("account", account.Login).
				WithField("ticket", *p.Ticket).
				WithError(err).
				Warn("cancel pending order at broker")
		}
	}
}

func (u *orderUseCase) place(ctx context.Context, account *models.Account, req *structs.TradeRequest) (structs.OrderOutcome, *placement) {
	volume := account.AdjustVolume(req.Volume)
	outcome := structs.OrderOutcome{
		AccountID: account.ID,
		Login:     account.Login,
		Volume:    volume,
	}
	if volume <= 0 {
		outcome.Error = "adjusted volume is zero"
		return outcome, nil
	}

	var res gateway.OrderResult
	err := u.guard.WithSession(ctx, account, func(ctx context.Context, s gateway.Session) error {
		var err error
		res, err = s.Submit(ctx, gateway.NewOrderRequest(req.Symbol, req.Kind, volume, req.Price, req.StopLoss, req.TakeProfit))
		return err
	})
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}

	openPrice := req.Price
	if res.Price > 0 {
		openPrice = res.Price
	}

	now := u.now()
	p := models.NewPosition(account, req.Kind, req.Symbol, res.Ticket, volume, openPrice, req.StopLoss, req.TakeProfit, now)
	if req.SignalID != 0 {
		id := req.SignalID
		p.SignalID = &id
	}

	outcome.Success = true
	outcome.Ticket = res.Ticket

	return outcome, &placement{
		account:  account,
		position: p,
		log: &models.TradeLog{
			AccountID:  account.ID,
			Ticket:     res.Ticket,
			Symbol:     req.Symbol,
			Action:     req.Action,
			Kind:       req.Kind,
			Volume:     volume,
			Price:      openPrice,
			StopLoss:   req.StopLoss,
			TakeProfit: req.TakeProfit,
			CreatedAt:  now,
		},
	}
}

func eligibleFor(accounts []models.Account, symbol string) []models.Account {
	out := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Eligible(symbol) {
			out = append(out, a)
		}
	}
	return out
}

// targetsFor returns the accounts a broker call about p must reach: its
// owner when that account is eligible, every eligible account for rows
// created before positions were account scoped.
func targetsFor(p *models.Position, eligible []models.Account) []models.Account {
	if p.AccountID == nil {
		return eligible
	}
	for _, a := range eligible {
		if a.ID == *p.AccountID {
			return []models.Account{a}
		}
	}
	return nil
}
