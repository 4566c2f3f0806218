package domain

import (
	"github.com/shopspring/decimal"
)

// Order represents a limit order, resting or incoming.
// Normal orders live in the "orders" table, OTC liquidity in "otc_orders"
// (same columns, separate table). All monetary values are exact decimals.
type Order struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	UserID    int64           `gorm:"index;not null" json:"userId"`
	Base      string          `gorm:"index;not null" json:"base"`    // base currency, eg. "USD"
	Counter   string          `gorm:"index;not null" json:"counter"` // counter currency, eg. "JPY"
	Side      string          `gorm:"not null" json:"side"`          // "BUY" or "SELL"
	Price     decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"price"`
	Qty       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"qty"`
	Remaining decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"remaining"`
	Cancelled bool            `gorm:"not null;default:false" json:"cancelled"`
	CreatedAt int64           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt int64           `gorm:"autoUpdateTime" json:"updatedAt"`
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OppositeSide returns the side a matching counter-order must have.
func OppositeSide(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ValidSide reports whether side is one of the two known values.
func ValidSide(side string) bool {
	return side == SideBuy || side == SideSell
}

// IsOpen reports whether the order is resting and matchable.
func (o *Order) IsOpen() bool {
	return !o.Cancelled && o.Remaining.IsPositive()
}
