package engine

import (
	"exchange_go/internal/domain"
)

// Contracts turns a match result into the immutable trade records to
// append: one symmetric pair per fill. Both rows share the execution
// price (the maker's) and quantity; each row carries its own side's
// original order price and quantity, with userId/counterUserId swapped.
func Contracts(taker domain.Order, fills []Fill, otc bool) []domain.Contract {
	contracts := make([]domain.Contract, 0, len(fills)*2)
	for _, f := range fills {
		contracts = append(contracts, domain.Contract{
			UserID:        taker.UserID,
			CounterUserID: f.Maker.UserID,
			Base:          taker.Base,
			Counter:       taker.Counter,
			Side:          taker.Side,
			OfferPrice:    taker.Price,
			OfferQty:      taker.Qty,
			Price:         f.Maker.Price,
			Qty:           f.Qty,
			OTC:           otc,
		})
		contracts = append(contracts, domain.Contract{
			UserID:        f.Maker.UserID,
			CounterUserID: taker.UserID,
			Base:          f.Maker.Base,
			Counter:       f.Maker.Counter,
			Side:          f.Maker.Side,
			OfferPrice:    f.Maker.Price,
			OfferQty:      f.Maker.Qty,
			Price:         f.Maker.Price,
			Qty:           f.Qty,
			OTC:           otc,
		})
	}
	return contracts
}
