package usecasees

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

type reconcileUseCase struct {
	store     sqlstore.Store
	guard     SessionGuard
	settings  *SettingsResolver
	notifier  *Notifier
	publisher Publisher
	metrics   *structs.Metrics

	interval time.Duration
	backoff  time.Duration

	// last observed bid per symbol, owned by the loop goroutine
	lastBid map[string]float64

	logger *logrus.Logger
	now    func() time.Time
}

func NewReconcileUseCase(
	store sqlstore.Store,
	guard SessionGuard,
	settings *SettingsResolver,
	notifier *Notifier,
	publisher Publisher,
	metrics *structs.Metrics,
	interval, backoff time.Duration,
	logger *logrus.Logger,
) *reconcileUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	return &reconcileUseCase{
		store:     store,
		guard:     guard,
		settings:  settings,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		interval:  interval,
		backoff:   backoff,
		lastBid:   map[string]float64{},
		logger:    logger,
		now:       time.Now,
	}
}

// Run drives Cycle every interval until ctx is cancelled. A failed cycle is
// logged and retried after the back-off. A cycle in flight when ctx is
// cancelled runs to completion.
func (u *reconcileUseCase) Run(ctx context.Context) {
	u.logger.
		WithField("interval", u.interval).
		WithField("backoff", u.backoff).
		Info("reconciler started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("reconciler stopped")
			return
		case <-timer.C:
		}

		wait := u.interval
		if _, err := u.safeCycle(context.WithoutCancel(ctx)); err != nil {
			u.metrics.Inc(structs.MetricCycleFailed)
			u.logger.
				WithField("method", "Run").
				WithError(err).
				Error("reconcile cycle failed, backing off")
			wait = u.backoff
		}

		timer.Reset(wait)
	}
}

func (u *reconcileUseCase) safeCycle(ctx context.Context) (report *structs.CycleReport, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()

	return u.Cycle(ctx)
}

type transition struct {
	position *models.Position
	from     models.PositionStatus
	price    float64
}

type trailed struct {
	position *models.Position
	from     *float64
}

// Cycle runs one reconciliation pass: every Pending or Open position is
// checked against the current quote for its symbol and moved at most one
// step along the state machine. All mutations commit together.
func (u *reconcileUseCase) Cycle(ctx context.Context) (*structs.CycleReport, error) {
	start := time.Now()
	defer func() {
		if u.metrics != nil {
			u.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()

	report := &structs.CycleReport{Prices: map[string]structs.PriceTick{}}

	positions, err := u.store.Positions().GetActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active positions")
	}
	if len(positions) == 0 {
		return report, nil
	}

	accounts, err := u.store.Accounts().ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	if len(accounts) == 0 {
		report.Skipped = len(positions)
		u.logger.WithField("method", "Cycle").Debug("no active account to quote with")
		return report, nil
	}

	quotes, err := u.quotes(ctx, &accounts[0], positions)
	if err != nil {
		return nil, err
	}

	var (
		dirty       []*models.Position
		transitions []transition
		trails      []trailed
	)

	for i := range positions {
		p := &positions[i]
		report.Checked++

		q, ok := quotes[p.Symbol]
		if !ok {
			report.Skipped++
			continue
		}
		price := p.Kind.ReferencePrice(q.Bid, q.Ask)

		switch p.Status {
		case models.StatusPending:
			if !p.Kind.Activates(price, p.OpenPrice) {
				continue
			}
			if err := p.Activate(); err != nil {
				return nil, err
			}
			report.Activated++
			dirty = append(dirty, p)
			transitions = append(transitions, transition{position: p, from: models.StatusPending, price: price})

		case models.StatusOpen:
			tun := u.settings.For(ctx, p.Symbol)

			if p.ExitTriggered(price) {
				if err := p.Close(price, tun.ProfitMultiplier, u.now()); err != nil {
					return nil, err
				}
				report.Closed++
				dirty = append(dirty, p)
				transitions = append(transitions, transition{position: p, from: models.StatusOpen, price: price})
				continue
			}

			candidate, ok := p.TrailCandidate(price, tun.TrailDistance)
			if !ok {
				continue
			}
			from := p.StopLoss
			if u.pushStop(ctx, p, candidate, eligibleFor(accounts, p.Symbol)) {
				p.StopLoss = &candidate
				report.Trailed++
				dirty = append(dirty, p)
				trails = append(trails, trailed{position: p, from: from})
			}
		}
	}

	stale := map[int64]bool{}
	if len(dirty) > 0 {
		err := u.store.InTx(ctx, func(r sqlstore.Repos) error {
			for _, p := range dirty {
				// a manual operation may have written the row since it was loaded
				err := r.Positions().Update(ctx, p)
				if errors.Is(err, models.ErrStale) {
					u.logger.
						WithField("method", "Cycle").
						WithField("ticket", p.TicketValue()).
						Warn("position changed during cycle, dropping update")
					stale[p.ID] = true
					continue
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "commit cycle")
		}
	}

	for _, t := range transitions {
		if !stale[t.position.ID] {
			u.emitTransition(t)
		}
	}
	for _, t := range trails {
		if stale[t.position.ID] {
			continue
		}
		u.metrics.Inc(structs.MetricTrailingAdjusted)
		u.notifier.trailingUpdated(t.position, t.from)
	}

	for symbol, q := range quotes {
		var change float64
		if prev, ok := u.lastBid[symbol]; ok {
			change = q.Bid - prev
		}
		u.lastBid[symbol] = q.Bid
		report.Prices[symbol] = structs.PriceTick{Bid: q.Bid, Ask: q.Ask, Change: change}
	}
	if len(report.Prices) > 0 {
		u.publisher.Publish(telemetry.EventPriceUpdate, structs.PriceUpdate{Prices: report.Prices})
	}

	return report, nil
}

// quotes fetches one quote per distinct symbol in a single session. A symbol
// without a quote is left out and its positions are skipped this cycle.
func (u *reconcileUseCase) quotes(ctx context.Context, account *models.Account, positions []models.Position) (map[string]gateway.Quote, error) {
	out := map[string]gateway.Quote{}

	var symbols []string
	seen := map[string]bool{}
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}

	err := u.guard.WithSession(ctx, account, func(ctx context.Context, s gateway.Session) error {
		for _, symbol := range symbols {
			q, err := s.Quote(ctx, symbol)
			if err != nil {
				u.metrics.Inc(structs.MetricQuoteMissing)
				u.logger.
					WithField("method", "quotes").
					WithField("symbol", symbol).
					WithError(err).
					Debug("quote unavailable, skipping symbol")
				continue
			}
			out[symbol] = q
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch quotes")
	}

	return out, nil
}

// pushStop sends the new stop to every account holding the position and
// reports whether all of them acknowledged it.
func (u *reconcileUseCase) pushStop(ctx context.Context, p *models.Position, stop float64, eligible []models.Account) bool {
	if p.Ticket == nil {
		return false
	}

	targets := targetsFor(p, eligible)
	if len(targets) == 0 {
		return false
	}

	ok := true
	for _, account := range targets {
		account := account
		err := u.guard.WithSession(ctx, &account, func(ctx context.Context, s gateway.Session) error {
			return s.Modify(ctx, gateway.ModifyRequest{
				Ticket:     *p.Ticket,
				Symbol:     p.Symbol,
				StopLoss:   &stop,
				TakeProfit: p.TakeProfit,
			})
		})
		if err != nil {
			ok = false
			u.logger.
				WithField("method", "pushStop").
				WithField("account", account.Login).
				WithField("ticket", *p.Ticket).
				WithField("stop", stop).
				WithError(err).
				Warn("trailing stop not accepted, keeping local stop")
		}
	}

	return ok
}

func (u *reconcileUseCase) emitTransition(t transition) {
	p := t.position

	switch p.Status {
	case models.StatusOpen:
		u.metrics.Inc(structs.MetricPositionOpened)
		u.notifier.statusChanged(p, t.from, t.price)
	case models.StatusClosed:
		u.metrics.Inc(structs.MetricPositionClosed)
		u.notifier.positionClosed(p)
	}

	u.publisher.Publish(telemetry.EventStatusChanged, structs.StatusChanged{
		PositionID: p.ID,
		Ticket:     p.TicketValue(),
		Symbol:     p.Symbol,
		From:       t.from,
		To:         p.Status,
		Price:      t.price,
		StopLoss:   p.StopLoss,
	})

	u.logger.
		WithField("ticket", p.TicketValue()).
		WithField("symbol", p.Symbol).
		WithField("price", t.price).
		Info(fmt.Sprintf("position %s -> %s", t.from, p.Status))
}
