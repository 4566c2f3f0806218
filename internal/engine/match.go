// Package engine implements order matching as pure computation: given an
// incoming order and a snapshot of resting counter-orders it decides which
// makers are consumed and what remains of the taker. It performs no I/O;
// persisting the outcome is the orchestrator's job.
package engine

import (
	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
)

// Fill records the consumption of one resting maker order.
type Fill struct {
	Maker          domain.Order    // maker row as read, before the fill is applied
	Qty            decimal.Decimal // executed quantity
	RemainingAfter decimal.Decimal
}

// Result is the outcome of matching one incoming order.
type Result struct {
	Fills []Fill
	// Taker is the incoming order with Remaining set to the unfilled
	// quantity (zero when fully filled). For OTC orders the caller
	// discards it instead of resting it on the book.
	Taker domain.Order
}

// FilledQty returns the total quantity executed against the maker side.
func (r Result) FilledQty() decimal.Decimal {
	sum := decimal.Zero
	for _, f := range r.Fills {
		sum = sum.Add(f.Qty)
	}
	return sum
}

// Match walks candidates in the given order, consuming each maker's
// remaining quantity against the taker until the taker is filled or
// candidates run out. Candidates must already be price-filtered (crossing
// the taker's limit) and sorted by price priority, then oldest first —
// best price first: ascending when the taker buys, descending when it
// sells. The execution price of every fill is the maker's price.
func Match(taker domain.Order, candidates []domain.Order) Result {
	res := Result{Taker: taker}
	rest := taker.Qty

	for _, c := range candidates {
		if !c.IsOpen() {
			continue
		}
		after := c.Remaining.Sub(rest)
		if after.Sign() >= 0 {
			// Maker covers the whole rest; taker is done.
			res.Fills = append(res.Fills, Fill{Maker: c, Qty: rest, RemainingAfter: after})
			rest = decimal.Zero
			break
		}
		// Maker fully consumed, keep walking with the reduced rest.
		res.Fills = append(res.Fills, Fill{Maker: c, Qty: c.Remaining, RemainingAfter: decimal.Zero})
		rest = after.Neg()
	}

	res.Taker.Remaining = rest
	return res
}
