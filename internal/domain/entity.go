package domain

import (
	"github.com/shopspring/decimal"
)

// Contract is one side of an executed trade. Contracts are always written
// in symmetric pairs: one row per participant, equal price and qty, with
// UserID/CounterUserID swapped.
type Contract struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	UserID        int64           `gorm:"index;not null" json:"userId"`
	CounterUserID int64           `gorm:"not null" json:"counterUserId"`
	Base          string          `gorm:"index;not null" json:"base"`
	Counter       string          `gorm:"index;not null" json:"counter"`
	Side          string          `gorm:"not null" json:"side"`
	OfferPrice    decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"offerPrice"` // this side's own order price
	OfferQty      decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"offerQty"`   // this side's own order qty
	Price         decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"price"`      // execution price (maker's)
	Qty           decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"qty"`        // executed quantity
	OTC           bool            `gorm:"not null;default:false" json:"otc"`
	CreatedAt     int64           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     int64           `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Position is a user's running balance of one currency, unique per
// (userId, base). Created lazily on the first balance-affecting event and
// mutated in place; it carries no history.
type Position struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	UserID    int64           `gorm:"uniqueIndex:idx_position_user_base;not null" json:"userId"`
	Base      string          `gorm:"uniqueIndex:idx_position_user_base;not null" json:"base"`
	Qty       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"qty"`
	CreatedAt int64           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt int64           `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Transfer is an immutable record of funds moved between two users,
// optionally with a fee paid to a third user in the same currency.
// FeeUserID zero means no fee.
type Transfer struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	SrcUserID int64           `gorm:"index;not null" json:"srcUserId"`
	DstUserID int64           `gorm:"index;not null" json:"dstUserId"`
	Base      string          `gorm:"index;not null" json:"base"`
	Qty       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"qty"`
	FeeUserID int64           `json:"feeUserId,omitempty"`
	FeeAmount decimal.Decimal `gorm:"type:decimal(32,8)" json:"feeAmount"`
	Memo      string          `json:"memo,omitempty"`
	MemoType  string          `json:"memoType,omitempty"` // eg. a MIME type
	CreatedAt int64           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt int64           `gorm:"autoUpdateTime" json:"updatedAt"`
}
