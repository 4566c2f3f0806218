// Package ledger derives balance deltas from trades and transfers and
// applies them to position rows. Derivation is pure; Apply is the only
// part that touches storage and must run inside the writer's transaction.
package ledger

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// Entry is one signed balance delta for one user in one currency.
type Entry struct {
	UserID int64
	Base   string
	Qty    decimal.Decimal
}

// TradeEntries derives the deltas implied by executed contracts. Each
// contract row yields two entries for its owner: the base leg and the
// counter leg at the execution price. A symmetric pair therefore sums to
// zero in both currencies.
func TradeEntries(contracts []domain.Contract) []Entry {
	entries := make([]Entry, 0, len(contracts)*2)
	for _, c := range contracts {
		amount := c.Price.Mul(c.Qty)
		if c.Side == domain.SideBuy {
			entries = append(entries,
				Entry{UserID: c.UserID, Base: c.Base, Qty: c.Qty},
				Entry{UserID: c.UserID, Base: c.Counter, Qty: amount.Neg()},
			)
		} else {
			entries = append(entries,
				Entry{UserID: c.UserID, Base: c.Base, Qty: c.Qty.Neg()},
				Entry{UserID: c.UserID, Base: c.Counter, Qty: amount},
			)
		}
	}
	return entries
}

// TransferEntries derives the deltas of one transfer: the moved quantity
// plus, when a fee collector is set, the fee leg in the same currency.
func TransferEntries(t domain.Transfer) []Entry {
	entries := []Entry{
		{UserID: t.SrcUserID, Base: t.Base, Qty: t.Qty.Neg()},
		{UserID: t.DstUserID, Base: t.Base, Qty: t.Qty},
	}
	if t.FeeUserID != 0 && t.FeeAmount.IsPositive() {
		entries = append(entries,
			Entry{UserID: t.SrcUserID, Base: t.Base, Qty: t.FeeAmount.Neg()},
			Entry{UserID: t.FeeUserID, Base: t.Base, Qty: t.FeeAmount},
		)
	}
	return entries
}

// FeeEntries derives the deltas of a standalone fee charge: payer down,
// collector up, same currency.
func FeeEntries(payerID, collectorID int64, currency string, amount decimal.Decimal) []Entry {
	if amount.IsZero() {
		return nil
	}
	return []Entry{
		{UserID: payerID, Base: currency, Qty: amount.Neg()},
		{UserID: collectorID, Base: currency, Qty: amount},
	}
}

// Merge collapses entries to one per (user, currency), summing the
// quantities. First-seen order is preserved so the writer touches
// position rows deterministically.
func Merge(entries []Entry) []Entry {
	type key struct {
		userID int64
		base   string
	}
	merged := make([]Entry, 0, len(entries))
	index := make(map[key]int, len(entries))
	for _, e := range entries {
		k := key{e.UserID, e.Base}
		if i, ok := index[k]; ok {
			merged[i].Qty = merged[i].Qty.Add(e.Qty)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, e)
	}
	return merged
}

// PositionStore is the slice of storage the ledger needs to settle
// entries against position rows.
type PositionStore interface {
	// PositionForUpdate loads the (userID, base) row locked for the
	// transaction, or a NOT_FOUND error when none exists yet.
	PositionForUpdate(tx *gorm.DB, userID int64, base string) (*domain.Position, error)
	InsertPosition(tx *gorm.DB, p *domain.Position) error
	AddPositionQty(tx *gorm.DB, id int64, delta decimal.Decimal) error
}

// Service settles merged entries onto position rows.
type Service struct {
	positions PositionStore
}

func NewService(positions PositionStore) *Service {
	return &Service{positions: positions}
}

// Apply merges entries and applies each to its position row, creating the
// row on first use. It returns the ids of the touched positions. Zero
// merged deltas still touch the row so the caller reports it as affected.
func (s *Service) Apply(tx *gorm.DB, entries []Entry) ([]int64, error) {
	ids := make([]int64, 0, len(entries))
	for _, e := range Merge(entries) {
		pos, err := s.positions.PositionForUpdate(tx, e.UserID, e.Base)
		if err != nil {
			if domain.CodeOf(err) != domain.CodeNotFound {
				return nil, err
			}
			created := &domain.Position{UserID: e.UserID, Base: e.Base, Qty: e.Qty}
			if err := s.positions.InsertPosition(tx, created); err != nil {
				return nil, err
			}
			ids = append(ids, created.ID)
			continue
		}
		if err := s.positions.AddPositionQty(tx, pos.ID, e.Qty); err != nil {
			return nil, err
		}
		ids = append(ids, pos.ID)
	}
	return ids, nil
}
