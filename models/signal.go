package models

import "time"

type SignalStatus string

const (
	SignalReceived  SignalStatus = "Received"
	SignalProcessed SignalStatus = "Processed"
	SignalPartial   SignalStatus = "Partial"
	SignalRejected  SignalStatus = "Rejected"
	SignalInvalid   SignalStatus = "Invalid"
	SignalFailed    SignalStatus = "Failed"
)

// Signal is the audit record of one inbound webhook call.
type Signal struct {
	ID           int64        `db:"id" json:"id"`
	RequestID    string       `db:"request_id" json:"request_id"`
	Action       string       `db:"action" json:"action"`
	Symbol       string       `db:"symbol" json:"symbol"`
	OrderType    string       `db:"order_type" json:"order_type"`
	Volume       float64      `db:"volume" json:"volume"`
	Price        float64      `db:"price" json:"price"`
	StopLoss     *float64     `db:"stop_loss" json:"stop_loss"`
	TakeProfit   *float64     `db:"take_profit" json:"take_profit"`
	Status       SignalStatus `db:"status" json:"status"`
	ErrorMessage string       `db:"error_message" json:"error_message"`
	CreatedAt    time.Time    `db:"created_at" json:"timestamp"`
}

// TradeLog is appended once per acknowledged account-level placement.
type TradeLog struct {
	ID         int64     `db:"id" json:"id"`
	AccountID  int64     `db:"account_id" json:"account_id"`
	PositionID int64     `db:"position_id" json:"position_id"`
	Ticket     int64     `db:"ticket" json:"ticket"`
	Symbol     string    `db:"symbol" json:"symbol"`
	Action     string    `db:"action" json:"action"`
	Kind       OrderKind `db:"order_kind" json:"type"`
	Volume     float64   `db:"volume" json:"volume"`
	Price      float64   `db:"price" json:"price"`
	StopLoss   *float64  `db:"stop_loss" json:"sl"`
	TakeProfit *float64  `db:"take_profit" json:"tp"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
