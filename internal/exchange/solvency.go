package exchange

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// positionQty returns the user's holding of one currency, zero when no
// position row exists yet.
func (e *Exchange) positionQty(tx *gorm.DB, userID int64, base string) (decimal.Decimal, error) {
	p, err := e.store.PositionByUserBase(tx, userID, base)
	if err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, err
	}
	return p.Qty, nil
}

// checkOrderFunds rejects an order the user cannot cover. A buyer must
// hold enough counter currency for this order plus every open buy on the
// same book; a seller must hold enough base for this order plus every
// open sell. Filled-then-resting funds are already reflected in the
// position, so summing open remainders is the whole reservation. The
// reservation always sums the normal order book: OTC quotes are standing
// prices, not committed funds, so an OTC taker competes for the same
// balance as their resting orders.
func (e *Exchange) checkOrderFunds(tx *gorm.DB, o domain.Order, p OrderParams) error {
	// A buy reserves the counter currency of its own book; a sell
	// reserves the base across every book it is selling on.
	counterFilter := o.Counter
	if o.Side == domain.SideSell {
		counterFilter = ""
	}
	open, err := e.store.UserOpenOrders(tx, false, o.UserID, o.Base, counterFilter, o.Side)
	if err != nil {
		return err
	}

	var amtSum decimal.Decimal
	if o.Side == domain.SideBuy {
		amtSum = o.Price.Mul(o.Qty)
		for _, r := range open {
			amtSum = amtSum.Add(r.Price.Mul(r.Remaining))
		}
		hold, err := e.positionQty(tx, o.UserID, o.Counter)
		if err != nil {
			return err
		}
		if amtSum.GreaterThan(hold) {
			return domain.Errorf(domain.CodeInsufficientFunds,
				"insufficient funds: userId:%d at least %s %s balance required", o.UserID, amtSum, o.Counter)
		}
	} else {
		qtySum := o.Qty
		for _, r := range open {
			qtySum = qtySum.Add(r.Remaining)
		}
		hold, err := e.positionQty(tx, o.UserID, o.Base)
		if err != nil {
			return err
		}
		if qtySum.GreaterThan(hold) {
			return domain.Errorf(domain.CodeInsufficientFunds,
				"insufficient funds: userId:%d at least %s %s balance required", o.UserID, qtySum, o.Base)
		}
	}

	// Fee check. When a buyer pays the fee in the counter currency the
	// purchase amount and the fee draw on the same holding, so they are
	// summed; in every other case the fee stands alone.
	if p.FeeAmount.IsPositive() {
		feeCurrency := p.feeCurrencyOrBase()
		feeHold, err := e.positionQty(tx, o.UserID, feeCurrency)
		if err != nil {
			return err
		}
		required := p.FeeAmount
		if o.Side == domain.SideBuy && feeCurrency == o.Counter {
			required = amtSum.Add(p.FeeAmount)
		}
		if required.GreaterThan(feeHold) {
			return domain.Errorf(domain.CodeInsufficientFunds,
				"insufficient funds: userId:%d at least %s %s balance including fees required", o.UserID, required, feeCurrency)
		}
	}

	return nil
}

// checkTransferFunds rejects a transfer the sender cannot cover, fee
// included. The fee is always taken in the transferred currency. A sender
// with no position row at all is NOT_FOUND; only an existing-but-short
// balance is INSUFFICIENT_FUNDS.
func (e *Exchange) checkTransferFunds(tx *gorm.DB, p TransferParams) error {
	pos, err := e.store.PositionByUserBase(tx, p.SrcUserID, p.Base)
	if err != nil {
		return err
	}
	total := p.Qty.Add(p.FeeAmount)
	if total.GreaterThan(pos.Qty) {
		return domain.Errorf(domain.CodeInsufficientFunds,
			"insufficient funds: userId:%d sending %s %s (+fee %s %s), but %s short",
			p.SrcUserID, p.Qty, p.Base, p.FeeAmount, p.Base, total.Sub(pos.Qty))
	}
	return nil
}
