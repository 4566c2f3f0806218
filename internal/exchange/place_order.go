package exchange

import (
	"gorm.io/gorm"

	"exchange_go/internal/domain"
	"exchange_go/internal/engine"
	"exchange_go/internal/ledger"
)

func validateOrderParams(p OrderParams) error {
	if p.UserID == 0 {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: userId must be set")
	}
	if p.Base == "" || p.Counter == "" {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: base and counter must be set")
	}
	if p.Base == p.Counter {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: base and counter are both %s", p.Base)
	}
	if !domain.ValidSide(p.Side) {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: side must be BUY or SELL, got %q", p.Side)
	}
	if !p.Price.IsPositive() {
		return domain.Errorf(domain.CodeInvalidOrder, "invalid order: price must be positive, got %s", p.Price)
	}
	if !p.Qty.IsPositive() {
		return domain.Errorf(domain.CodeInvalidOrder, "invalid order: qty must be positive, got %s", p.Qty)
	}
	if p.FeeAmount.IsNegative() {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: fee amount must not be negative, got %s", p.FeeAmount)
	}
	if p.FeeAmount.IsPositive() && p.FeeUserID == 0 {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: feeUserId must be set when a fee is charged")
	}
	return nil
}

// placeOrder is the make-offer pipeline, run on the writer inside one
// transaction: validate, check funds, match against the book, persist
// contracts and order changes, settle balances, then charge the fee.
// An OTC order executes against the standing OTC quotes and its unfilled
// remainder is discarded instead of resting on the book.
func (e *Exchange) placeOrder(tx *gorm.DB, p OrderParams) (*Affected, error) {
	if err := validateOrderParams(p); err != nil {
		return nil, err
	}

	taker := domain.Order{
		UserID:    p.UserID,
		Base:      p.Base,
		Counter:   p.Counter,
		Side:      p.Side,
		Price:     p.Price,
		Qty:       p.Qty,
		Remaining: p.Qty,
	}

	if err := e.checkOrderFunds(tx, taker, p); err != nil {
		return nil, err
	}

	candidates, err := e.store.MatchableOrders(tx, taker, p.OTC, true)
	if err != nil {
		return nil, err
	}

	res := engine.Match(taker, candidates)
	contracts := engine.Contracts(res.Taker, res.Fills, p.OTC)

	affected := &Affected{Orderbook: &Pair{Base: p.Base, Counter: p.Counter}}
	addBookOrder := affected.addOrder
	if p.OTC {
		addBookOrder = affected.addOtcOrder
	}

	for _, f := range res.Fills {
		if err := e.store.SetRemaining(tx, p.OTC, f.Maker.ID, f.RemainingAfter); err != nil {
			return nil, err
		}
		addBookOrder(f.Maker.UserID)
	}

	bookChanged := len(res.Fills) > 0

	if !p.OTC {
		// The taker row is recorded even when fully filled, as the
		// user's order history.
		inserted := res.Taker
		if err := e.store.InsertOrder(tx, false, &inserted); err != nil {
			return nil, err
		}
		addBookOrder(p.UserID)
		bookChanged = true
	}

	var entries []ledger.Entry
	if len(contracts) > 0 {
		if err := e.store.InsertContracts(tx, contracts); err != nil {
			return nil, err
		}
		for _, c := range contracts {
			affected.addContract(c.UserID)
		}
		entries = ledger.TradeEntries(contracts)
	}

	// The fee falls due once the book changed on the user's behalf; an
	// OTC order that matched nothing costs nothing.
	if bookChanged && p.FeeAmount.IsPositive() {
		entries = append(entries,
			ledger.FeeEntries(p.UserID, p.FeeUserID, p.feeCurrencyOrBase(), p.FeeAmount)...)
	}

	if len(entries) > 0 {
		if _, err := e.ledger.Apply(tx, entries); err != nil {
			return nil, err
		}
		for _, en := range ledger.Merge(entries) {
			affected.addPosition(en.UserID)
		}
	}

	return affected, nil
}

// cancelOrder flags one of the user's own open orders as cancelled.
func (e *Exchange) cancelOrder(tx *gorm.DB, userID, orderID int64, otc bool) (*Affected, error) {
	o, err := e.store.OrderByID(tx, otc, orderID, true)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.Errorf(domain.CodePermissionDenied,
			"permission denied: order %d does not belong to userId:%d", orderID, userID)
	}
	if !o.IsOpen() {
		return nil, domain.Errorf(domain.CodeInvalidOrder, "order %d is already closed", orderID)
	}

	if err := e.store.MarkCancelled(tx, otc, orderID); err != nil {
		return nil, err
	}

	affected := &Affected{Orderbook: &Pair{Base: o.Base, Counter: o.Counter}}
	if otc {
		affected.addOtcOrder(userID)
	} else {
		affected.addOrder(userID)
	}
	return affected, nil
}
