package gateway

import (
	"context"

	"github.com/mkhodaee16/ecb-bot/models"
)

// Fixed placement policy sent with every order.
const (
	Deviation   = 20
	Magic       = 234000
	TimeInForce = "GTC"
	Filling     = "IOC"
	Comment     = "ecb-bot"
)

type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

func CredentialsOf(a *models.Account) Credentials {
	return Credentials{Login: a.Login, Password: a.Password, Server: a.Server}
}

type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

type OrderRequest struct {
	Symbol      string           `json:"symbol"`
	Kind        models.OrderKind `json:"type"`
	Volume      float64          `json:"volume"`
	Price       float64          `json:"price"`
	StopLoss    *float64         `json:"sl,omitempty"`
	TakeProfit  *float64         `json:"tp,omitempty"`
	Deviation   int              `json:"deviation"`
	Magic       int              `json:"magic"`
	TimeInForce string           `json:"type_time"`
	Filling     string           `json:"type_filling"`
	Comment     string           `json:"comment"`
}

// NewOrderRequest applies the fixed placement policy.
func NewOrderRequest(symbol string, kind models.OrderKind, volume, price float64, sl, tp *float64) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Kind:        kind,
		Volume:      volume,
		Price:       price,
		StopLoss:    sl,
		TakeProfit:  tp,
		Deviation:   Deviation,
		Magic:       Magic,
		TimeInForce: TimeInForce,
		Filling:     Filling,
		Comment:     Comment,
	}
}

type OrderResult struct {
	Ticket  int64   `json:"ticket"`
	Price   float64 `json:"price"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

// ModifyRequest carries the complete new stop levels of a ticket. A nil
// level removes it at the broker.
type ModifyRequest struct {
	Ticket     int64    `json:"ticket"`
	Symbol     string   `json:"symbol"`
	Price      *float64 `json:"price,omitempty"`
	StopLoss   *float64 `json:"sl,omitempty"`
	TakeProfit *float64 `json:"tp,omitempty"`
}

type CloseRequest struct {
	Ticket int64            `json:"ticket"`
	Symbol string           `json:"symbol"`
	Kind   models.OrderKind `json:"type"`
	Volume float64          `json:"volume"`
}

// Gateway opens authenticated sessions against the trading terminal.
// The terminal holds one authenticated context at a time, callers go
// through Guard rather than using a Gateway directly.
type Gateway interface {
	Connect(ctx context.Context, creds Credentials) (Session, error)
}

type Session interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Submit(ctx context.Context, req OrderRequest) (OrderResult, error)
	Modify(ctx context.Context, req ModifyRequest) error
	Cancel(ctx context.Context, ticket int64) error
	// ClosePosition market-exits the position and reports the fill price.
	ClosePosition(ctx context.Context, req CloseRequest) (float64, error)
	Release(ctx context.Context) error
}
