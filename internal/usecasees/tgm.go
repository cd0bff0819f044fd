package usecasees

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/controllers"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/models"
)

type tgmUseCase struct {
	store         sqlstore.Store
	tgmController controllers.TgmCtrl
	loc           *time.Location
	logger        *logrus.Logger
	now           func() time.Time
}

func NewTgmUseCase(
	store sqlstore.Store,
	tgmController controllers.TgmCtrl,
	loc *time.Location,
	logger *logrus.Logger,
) *tgmUseCase {
	if loc == nil {
		loc = time.UTC
	}

	return &tgmUseCase{
		store:         store,
		tgmController: tgmController,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

// CommandProcessor answers bot commands from the configured chat until ctx
// is cancelled.
func (u *tgmUseCase) CommandProcessor(ctx context.Context) {
	updates := u.tgmController.GetUpdates()

	go func() {
		<-ctx.Done()
		u.tgmController.Stop()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		if !u.tgmController.CheckChatID(update.Message.Chat.ID) {
			u.logger.
				WithField("method", "CommandProcessor").
				WithField("chat", update.Message.Chat.ID).
				Debug("ignoring foreign chat")
			continue
		}

		text, ok := u.Handle(ctx, update.Message.Command())
		if !ok {
			continue
		}
		if err := u.tgmController.Send(text); err != nil {
			u.logger.WithField("method", "CommandProcessor").WithError(err).Warn("telegram send")
		}
	}
}

// Handle renders the reply for command. ok is false for unknown commands.
func (u *tgmUseCase) Handle(ctx context.Context, command string) (string, bool) {
	switch command {
	case "ping":
		return fmt.Sprintf("PONG [ %s ]", u.now().In(u.loc).Format(time.RFC822)), true
	case "stat":
		return u.orderStat(ctx, 24*time.Hour), true
	case "positions":
		return u.activePositions(ctx), true
	default:
		return "", false
	}
}

func (u *tgmUseCase) orderStat(ctx context.Context, window time.Duration) string {
	eTime := u.now()
	sTime := eTime.Add(-window)

	positions, err := u.store.Positions().GetCreatedWithInterval(ctx, sTime, eTime)
	if err != nil {
		u.logger.WithField("method", "orderStat").WithError(err).Error("load positions")
		return "[ Orders Stat ]\nunavailable"
	}

	type symbolStat struct {
		counts map[models.PositionStatus]int
		profit float64
	}
	stats := map[string]*symbolStat{}
	var symbols []string

	for _, p := range positions {
		s, ok := stats[p.Symbol]
		if !ok {
			s = &symbolStat{counts: map[models.PositionStatus]int{}}
			stats[p.Symbol] = s
			symbols = append(symbols, p.Symbol)
		}
		s.counts[p.Status]++
		if p.Profit != nil {
			s.profit += *p.Profit
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[ Orders Stat %s ]\n", window)
	if len(symbols) == 0 {
		b.WriteString("no positions\n")
	}
	for _, symbol := range symbols {
		s := stats[symbol]
		fmt.Fprintf(&b,
			"Symbol:\t<b>%s</b>\n"+
				"Pending:\t%d\n"+
				"Open:\t%d\n"+
				"Closed:\t%d\n"+
				"Cancelled:\t%d\n"+
				"Profit:\t%.2f\n",
			html.EscapeString(symbol),
			s.counts[models.StatusPending],
			s.counts[models.StatusOpen],
			s.counts[models.StatusClosed],
			s.counts[models.StatusCancelled],
			s.profit,
		)
	}

	return b.String()
}

func (u *tgmUseCase) activePositions(ctx context.Context) string {
	positions, err := u.store.Positions().GetActive(ctx)
	if err != nil {
		u.logger.WithField("method", "activePositions").WithError(err).Error("load positions")
		return "[ Positions ]\nunavailable"
	}

	var b strings.Builder
	b.WriteString("[ Positions ]\n")
	if len(positions) == 0 {
		b.WriteString("none\n")
	}
	for _, p := range positions {
		fmt.Fprintf(&b, "#%d %s %s %g @ %s SL %s TP %s [%s]\n",
			p.TicketValue(),
			html.EscapeString(p.Symbol),
			p.Kind,
			p.Volume,
			formatPrice(p.OpenPrice),
			formatOptional(p.StopLoss),
			formatOptional(p.TakeProfit),
			p.Status,
		)
	}

	return b.String()
}
