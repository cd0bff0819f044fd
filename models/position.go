package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type PositionStatus string

const (
	StatusPending   PositionStatus = "Pending"
	StatusOpen      PositionStatus = "Open"
	StatusClosed    PositionStatus = "Closed"
	StatusCancelled PositionStatus = "Cancelled"
)

var transitions = map[PositionStatus][]PositionStatus{
	StatusPending: {StatusOpen, StatusCancelled},
	StatusOpen:    {StatusClosed},
}

func (s PositionStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

func (s PositionStatus) CanTransition(to PositionStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Position struct {
	ID         int64          `db:"id" json:"id"`
	AccountID  *int64         `db:"account_id" json:"account_id"`
	SignalID   *int64         `db:"signal_id" json:"signal_id"`
	Ticket     *int64         `db:"ticket" json:"ticket"`
	Symbol     string         `db:"symbol" json:"symbol"`
	Kind       OrderKind      `db:"order_kind" json:"type"`
	Volume     float64        `db:"volume" json:"volume"`
	OpenPrice  float64        `db:"price_open" json:"price_open"`
	StopLoss   *float64       `db:"stop_loss" json:"sl"`
	TakeProfit *float64       `db:"take_profit" json:"tp"`
	ClosePrice *float64       `db:"price_close" json:"price_close"`
	Profit     *float64       `db:"profit" json:"profit"`
	Status     PositionStatus `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"timestamp"`
	ClosedAt   *time.Time     `db:"closed_at" json:"closed_at"`
	Version    int64          `db:"version" json:"-"`
}

// NewPosition builds the record for an acknowledged placement. Market orders
// start Open, resting limit/stop orders start Pending.
func NewPosition(account *Account, kind OrderKind, symbol string, ticket int64, volume, openPrice float64, sl, tp *float64, now time.Time) *Position {
	p := &Position{
		Ticket:     &ticket,
		Symbol:     symbol,
		Kind:       kind,
		Volume:     volume,
		OpenPrice:  openPrice,
		StopLoss:   sl,
		TakeProfit: tp,
		Status:     StatusOpen,
		CreatedAt:  now,
	}
	if kind.IsPending() {
		p.Status = StatusPending
	}
	if account != nil {
		id := account.ID
		p.AccountID = &id
	}

	return p
}

func (p *Position) transition(to PositionStatus) error {
	if !p.Status.CanTransition(to) {
		return errors.Wrapf(ErrInvalidState, "position %d: %s -> %s", p.ID, p.Status, to)
	}
	p.Status = to
	return nil
}

// Activate mirrors a resting order becoming live at the broker.
func (p *Position) Activate() error {
	return p.transition(StatusOpen)
}

// Close finalises an Open position at price and books its profit.
func (p *Position) Close(price, multiplier float64, now time.Time) error {
	if err := p.transition(StatusClosed); err != nil {
		return err
	}

	profit := Profit(p.Kind, p.OpenPrice, price, p.Volume, multiplier)
	p.ClosePrice = &price
	p.Profit = &profit
	p.ClosedAt = &now

	return nil
}

func (p *Position) Cancel(now time.Time) error {
	if err := p.transition(StatusCancelled); err != nil {
		return err
	}
	p.ClosedAt = &now

	return nil
}

// ExitTriggered reports whether price crosses the stop-loss or take-profit.
func (p *Position) ExitTriggered(price float64) bool {
	if p.Kind.IsBuy() {
		return (p.StopLoss != nil && price <= *p.StopLoss) ||
			(p.TakeProfit != nil && price >= *p.TakeProfit)
	}

	return (p.StopLoss != nil && price >= *p.StopLoss) ||
		(p.TakeProfit != nil && price <= *p.TakeProfit)
}

// TrailCandidate returns a stop-loss that follows price by distance, and
// whether it improves on the current one. Stops only ever move in the
// position's favour.
func (p *Position) TrailCandidate(price, distance float64) (float64, bool) {
	if distance <= 0 || p.StopLoss == nil {
		return 0, false
	}

	if p.Kind.IsBuy() {
		candidate := price - distance
		return candidate, candidate > *p.StopLoss
	}

	candidate := price + distance
	return candidate, candidate < *p.StopLoss
}

// Profit is (close-open) for buys and (open-close) for sells, scaled by
// volume and the per-lot multiplier.
func Profit(kind OrderKind, open, close, volume, multiplier float64) float64 {
	diff := decimal.NewFromFloat(close).Sub(decimal.NewFromFloat(open))
	if !kind.IsBuy() {
		diff = diff.Neg()
	}

	out, _ := diff.
		Mul(decimal.NewFromFloat(volume)).
		Mul(decimal.NewFromFloat(multiplier)).
		Float64()

	return out
}

func (p *Position) TicketValue() int64 {
	if p.Ticket == nil {
		return 0
	}
	return *p.Ticket
}

func Float(v float64) *float64 {
	return &v
}
