package models

import (
	"strings"

	"github.com/pkg/errors"
)

type OrderKind string

const (
	MarketBuy  OrderKind = "market buy"
	MarketSell OrderKind = "market sell"
	BuyLimit   OrderKind = "buy limit"
	SellLimit  OrderKind = "sell limit"
	BuyStop    OrderKind = "buy stop"
	SellStop   OrderKind = "sell stop"
)

var orderKindAliases = map[string]OrderKind{
	"buy":         MarketBuy,
	"market buy":  MarketBuy,
	"buy market":  MarketBuy,
	"sell":        MarketSell,
	"market sell": MarketSell,
	"sell market": MarketSell,
	"buy limit":   BuyLimit,
	"sell limit":  SellLimit,
	"buy stop":    BuyStop,
	"sell stop":   SellStop,
}

// ParseOrderKind accepts the spellings alerting tools send ("Buy Limit",
// "buy_limit", "SELL-STOP", "buy").
func ParseOrderKind(s string) (OrderKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")

	kind, ok := orderKindAliases[norm]
	if !ok {
		return "", errors.Wrapf(ErrValidation, "unknown order type %q", s)
	}

	return kind, nil
}

func (k OrderKind) IsBuy() bool {
	switch k {
	case MarketBuy, BuyLimit, BuyStop:
		return true
	case MarketSell, SellLimit, SellStop:
		return false
	default:
		panic("unknown order kind " + string(k))
	}
}

// IsPending reports whether an order of this kind rests at the broker until
// price reaches its entry.
func (k OrderKind) IsPending() bool {
	switch k {
	case BuyLimit, SellLimit, BuyStop, SellStop:
		return true
	case MarketBuy, MarketSell:
		return false
	default:
		panic("unknown order kind " + string(k))
	}
}

// Activates evaluates the pending-order trigger for the reference price.
func (k OrderKind) Activates(price, open float64) bool {
	switch k {
	case BuyLimit:
		return price <= open
	case SellLimit:
		return price >= open
	case BuyStop:
		return price >= open
	case SellStop:
		return price <= open
	case MarketBuy, MarketSell:
		return false
	default:
		panic("unknown order kind " + string(k))
	}
}

// ReferencePrice is the side a real close would execute at: bid for buys,
// ask for sells.
func (k OrderKind) ReferencePrice(bid, ask float64) float64 {
	if k.IsBuy() {
		return bid
	}
	return ask
}

func (k OrderKind) String() string {
	return string(k)
}
