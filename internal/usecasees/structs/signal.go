package structs

import "github.com/mkhodaee16/ecb-bot/models"

// WebhookPayload is the inbound alert body. Fields are loosely typed so a
// badly typed field is reported after the trade key has been checked.
// Numeric fields accept JSON numbers or numeric strings.
type WebhookPayload struct {
	TradeKey   interface{} `json:"tradekey"`
	Action     interface{} `json:"action"`
	Symbol     interface{} `json:"symbol"`
	Volume     interface{} `json:"volume"`
	OrderType  interface{} `json:"order_type"`
	Price      interface{} `json:"price"`
	StopLoss   interface{} `json:"stop_loss"`
	TakeProfit interface{} `json:"take_profit"`

	// DecodeErr is set when the body was not a JSON object.
	DecodeErr error `json:"-"`
}

// TradeRequest is a validated and normalised signal.
type TradeRequest struct {
	SignalID   int64
	Action     string
	Symbol     string
	Kind       models.OrderKind
	Volume     float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
}

// OrderOutcome is the placement result for one account.
type OrderOutcome struct {
	AccountID  int64   `json:"account_id"`
	Login      string  `json:"login"`
	Success    bool    `json:"success"`
	Ticket     int64   `json:"ticket,omitempty"`
	PositionID int64   `json:"position_id,omitempty"`
	Volume     float64 `json:"volume"`
	Error      string  `json:"error,omitempty"`
}

type FanOutResult struct {
	Cancelled []int64        `json:"cancelled"`
	Orders    []OrderOutcome `json:"orders"`
}

func (r *FanOutResult) Placed() int {
	n := 0
	for _, o := range r.Orders {
		if o.Success {
			n++
		}
	}
	return n
}

type SignalResponse struct {
	Success   bool           `json:"success"`
	RequestID string         `json:"request_id"`
	SignalID  int64          `json:"signal_id"`
	Status    string         `json:"status"`
	Ticket    int64          `json:"ticket,omitempty"`
	Orders    []OrderOutcome `json:"orders"`
	Cancelled []int64        `json:"cancelled"`
	Message   string         `json:"message"`
}

// ModifyPayload carries the manual modify fields. Absent fields keep their
// current value.
type ModifyPayload struct {
	Price      *float64 `json:"price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
}

type PriceTick struct {
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Change float64 `json:"change"`
}

type PriceUpdate struct {
	Prices map[string]PriceTick `json:"prices"`
}

type StatusChanged struct {
	PositionID int64                 `json:"position_id"`
	Ticket     int64                 `json:"ticket"`
	Symbol     string                `json:"symbol"`
	From       models.PositionStatus `json:"from"`
	To         models.PositionStatus `json:"to"`
	Price      float64               `json:"price,omitempty"`
	StopLoss   *float64              `json:"sl,omitempty"`
}

// CycleReport summarises one reconciliation pass.
type CycleReport struct {
	Checked   int
	Skipped   int
	Activated int
	Closed    int
	Trailed   int
	Prices    map[string]PriceTick
}
