package exchange

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
	"exchange_go/internal/ledger"
)

func validateTransferParams(p TransferParams) error {
	if p.SrcUserID == 0 || p.DstUserID == 0 {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: srcUserId and dstUserId must be set")
	}
	if p.SrcUserID == p.DstUserID {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: cannot transfer to self, userId:%d", p.SrcUserID)
	}
	if p.Base == "" {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: base must be set")
	}
	if !p.Qty.IsPositive() {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: qty must be positive, got %s", p.Qty)
	}
	if p.FeeAmount.IsNegative() {
		return domain.Errorf(domain.CodeInvalidParam, "invalid parameter: fee amount must not be negative, got %s", p.FeeAmount)
	}
	if p.FeeAmount.IsPositive() && p.FeeUserID == 0 {
		return domain.NewError(domain.CodeInvalidParam, "invalid parameter: feeUserId must be set when a fee is charged")
	}
	return nil
}

// makeTransfer moves funds between two users and records the transfer,
// run on the writer inside one transaction.
func (e *Exchange) makeTransfer(tx *gorm.DB, p TransferParams) (*Affected, error) {
	if err := validateTransferParams(p); err != nil {
		return nil, err
	}
	if err := e.checkTransferFunds(tx, p); err != nil {
		return nil, err
	}

	t := domain.Transfer{
		SrcUserID: p.SrcUserID,
		DstUserID: p.DstUserID,
		Base:      p.Base,
		Qty:       p.Qty,
		FeeUserID: p.FeeUserID,
		FeeAmount: p.FeeAmount,
		Memo:      p.Memo,
		MemoType:  p.MemoType,
	}
	if err := e.store.InsertTransfer(tx, &t); err != nil {
		return nil, err
	}

	entries := ledger.TransferEntries(t)
	if _, err := e.ledger.Apply(tx, entries); err != nil {
		return nil, err
	}

	affected := &Affected{Base: p.Base}
	affected.addTransfer(p.SrcUserID)
	affected.addTransfer(p.DstUserID)
	for _, en := range ledger.Merge(entries) {
		affected.addPosition(en.UserID)
	}
	return affected, nil
}

// supplyPosition credits (or, negative, debits) a user's holding from
// outside the exchange, eg. a confirmed deposit or withdrawal.
func (e *Exchange) supplyPosition(tx *gorm.DB, userID int64, base string, qty decimal.Decimal) (*Affected, error) {
	if userID == 0 {
		return nil, domain.NewError(domain.CodeInvalidParam, "invalid parameter: userId must be set")
	}
	if base == "" {
		return nil, domain.NewError(domain.CodeInvalidParam, "invalid parameter: base must be set")
	}
	if qty.IsZero() {
		return nil, domain.NewError(domain.CodeInvalidParam, "invalid parameter: qty must not be zero")
	}
	if qty.IsNegative() {
		hold, err := e.positionQty(tx, userID, base)
		if err != nil {
			return nil, err
		}
		if qty.Neg().GreaterThan(hold) {
			return nil, domain.Errorf(domain.CodeInsufficientFunds,
				"insufficient funds: userId:%d withdrawing %s %s, holding %s", userID, qty.Neg(), base, hold)
		}
	}

	if _, err := e.ledger.Apply(tx, []ledger.Entry{{UserID: userID, Base: base, Qty: qty}}); err != nil {
		return nil, err
	}

	affected := &Affected{Base: base}
	affected.addPosition(userID)
	return affected, nil
}

// quoteOtc replaces the user's standing OTC quote for one (pair, side).
// Quotes come from liquidity providers; funds are checked when a taker
// executes, not when the quote is placed.
func (e *Exchange) quoteOtc(tx *gorm.DB, p OrderParams) (int64, *Affected, error) {
	if err := validateOrderParams(p); err != nil {
		return 0, nil, err
	}

	o := domain.Order{
		UserID:    p.UserID,
		Base:      p.Base,
		Counter:   p.Counter,
		Side:      p.Side,
		Price:     p.Price,
		Qty:       p.Qty,
		Remaining: p.Qty,
	}
	if err := e.store.UpsertOtcOrder(tx, &o); err != nil {
		return 0, nil, err
	}

	affected := &Affected{Orderbook: &Pair{Base: p.Base, Counter: p.Counter}}
	affected.addOtcOrder(p.UserID)
	return o.ID, affected, nil
}
