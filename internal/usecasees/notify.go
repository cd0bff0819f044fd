package usecasees

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/controllers"
	"github.com/mkhodaee16/ecb-bot/models"
)

const notifyQueue = 256

// Notifier is the fire-and-forget Telegram sink. Messages are queued and
// delivered in order by Run. A nil controller disables it.
type Notifier struct {
	tgmController controllers.TgmCtrl
	queue         chan string
	logger        *logrus.Logger
}

func NewNotifier(tgm controllers.TgmCtrl, logger *logrus.Logger) *Notifier {
	return &Notifier{
		tgmController: tgm,
		queue:         make(chan string, notifyQueue),
		logger:        logger,
	}
}

// Run delivers queued messages one at a time until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	if n.tgmController == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.queue:
			if err := n.tgmController.Send(text); err != nil {
				n.logger.WithField("method", "Run").WithError(err).Warn("telegram send")
			}
		}
	}
}

func (n *Notifier) send(text string) {
	if n == nil || n.tgmController == nil {
		return
	}

	select {
	case n.queue <- text:
	default:
		n.logger.WithField("method", "send").Warn("notification queue full, dropping message")
	}
}

func (n *Notifier) positionOpened(account *models.Account, p *models.Position) {
	n.send(fmt.Sprintf("[ Position Opened ]\n"+
		"Account:\t%s\n"+
		"%s",
		html.EscapeString(account.String()),
		positionLines(p),
	))
}

func (n *Notifier) positionReplaced(p *models.Position) {
	n.send(fmt.Sprintf("[ Position Replaced ]\n"+
		"Pending order cancelled by a newer signal\n"+
		"%s",
		positionLines(p),
	))
}

func (n *Notifier) statusChanged(p *models.Position, from models.PositionStatus, price float64) {
	n.send(fmt.Sprintf("[ Position Status Changed ]\n"+
		"%s -> %s at %s\n"+
		"%s",
		from, p.Status, formatPrice(price),
		positionLines(p),
	))
}

func (n *Notifier) positionClosed(p *models.Position) {
	var profit float64
	if p.Profit != nil {
		profit = *p.Profit
	}
	var closePrice float64
	if p.ClosePrice != nil {
		closePrice = *p.ClosePrice
	}

	n.send(fmt.Sprintf("[ Position Closed ]\n"+
		"%s"+
		"Close:\t%s\n"+
		"Profit:\t<b>%.2f</b>\n",
		positionLines(p),
		formatPrice(closePrice),
		profit,
	))
}

func (n *Notifier) trailingUpdated(p *models.Position, from *float64) {
	n.send(fmt.Sprintf("[ Trailing Stop Updated ]\n"+
		"Ticket:\t%d\n"+
		"Symbol:\t%s\n"+
		"SL:\t%s -> %s\n",
		p.TicketValue(),
		html.EscapeString(p.Symbol),
		formatOptional(from),
		formatOptional(p.StopLoss),
	))
}

func positionLines(p *models.Position) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticket:\t%d\n", p.TicketValue())
	fmt.Fprintf(&b, "Symbol:\t<b>%s</b>\n", html.EscapeString(p.Symbol))
	fmt.Fprintf(&b, "Type:\t%s\n", p.Kind)
	fmt.Fprintf(&b, "Volume:\t%g\n", p.Volume)
	fmt.Fprintf(&b, "Price:\t%s\n", formatPrice(p.OpenPrice))
	fmt.Fprintf(&b, "SL:\t%s\n", formatOptional(p.StopLoss))
	fmt.Fprintf(&b, "TP:\t%s\n", formatOptional(p.TakeProfit))

	return b.String()
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.5f", v)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatPrice(*v)
}

// Started announces the process start.
func (n *Notifier) Started(accounts, active int) {
	n.send(fmt.Sprintf("[ ecb-bot started ]\n"+
		"Accounts:\t%d\n"+
		"Active positions:\t%d\n",
		accounts,
		active,
	))
}
