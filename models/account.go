package models

import (
	"strings"
	"time"
)

type Account struct {
	ID         int64     `db:"id" json:"id"`
	Login      string    `db:"login" json:"login"`
	Password   string    `db:"password" json:"-"`
	Server     string    `db:"server" json:"server"`
	Name       string    `db:"name" json:"name"`
	Multiplier float64   `db:"volume_multiplier" json:"volume_multiplier"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Restricted []string `db:"-" json:"restricted_symbols"`
}

func (a *Account) IsRestricted(symbol string) bool {
	for _, s := range a.Restricted {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// Eligible reports whether new orders for symbol may be routed to the account.
func (a *Account) Eligible(symbol string) bool {
	return a.IsActive && !a.IsRestricted(symbol)
}

// AdjustVolume scales a requested volume by the account multiplier.
func (a *Account) AdjustVolume(volume float64) float64 {
	return volume * a.Multiplier
}

func (a *Account) String() string {
	if a.Name != "" {
		return a.Name + " (" + a.Login + ")"
	}
	return a.Login
}
