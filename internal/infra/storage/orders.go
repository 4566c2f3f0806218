package storage

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// InsertOrder appends an order row and fills in its generated id.
func (s *Store) InsertOrder(tx *gorm.DB, otc bool, o *domain.Order) error {
	return domain.WrapError(domain.CodeStorage, orders(tx, otc).Create(o).Error)
}

// OrderByID loads one order, optionally locked for the transaction.
func (s *Store) OrderByID(tx *gorm.DB, otc bool, id int64, lock bool) (*domain.Order, error) {
	var o domain.Order
	err := s.forUpdate(orders(tx, otc), lock).Where("id = ?", id).Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "order %d not found", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &o, nil
}

// MatchableOrders loads the resting orders an incoming taker can execute
// against: opposite side, same pair, open, and crossing the taker's limit.
// Rows come back in match priority: best price first (ascending for a
// buyer, descending for a seller), then oldest first, then lowest id.
func (s *Store) MatchableOrders(tx *gorm.DB, taker domain.Order, otc, lock bool) ([]domain.Order, error) {
	q := s.forUpdate(orders(tx, otc), lock).
		Where("base = ? AND counter = ?", taker.Base, taker.Counter).
		Where("side = ?", domain.OppositeSide(taker.Side)).
		Where("cancelled = ?", false).
		Where("remaining > 0")

	if taker.Side == domain.SideBuy {
		q = q.Where("price <= ?", taker.Price).
			Order("price ASC").Order("updated_at ASC").Order("id ASC")
	} else {
		q = q.Where("price >= ?", taker.Price).
			Order("price DESC").Order("updated_at ASC").Order("id ASC")
	}

	var out []domain.Order
	if err := q.Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}

// OpenOrders loads the open side of a book for a pair, best price first,
// optionally scoped to one user's orders and capped at limit rows.
func (s *Store) OpenOrders(tx *gorm.DB, otc bool, base, counter, side string, userID int64, limit int) ([]domain.Order, error) {
	q := orders(tx, otc).
		Where("base = ? AND counter = ?", base, counter).
		Where("side = ?", side).
		Where("cancelled = ?", false).
		Where("remaining > 0")

	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	if side == domain.SideBuy {
		q = q.Order("price DESC")
	} else {
		q = q.Order("price ASC")
	}
	q = q.Order("updated_at ASC").Order("id ASC")

	var out []domain.Order
	if err := q.Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}

// UserOpenOrders loads one user's open orders on one side. An empty
// counter matches every book of the base currency: a seller's reservation
// spans all of them, while a buyer's is per pair. The solvency check sums
// these to know what the user already committed.
func (s *Store) UserOpenOrders(tx *gorm.DB, otc bool, userID int64, base, counter, side string) ([]domain.Order, error) {
	q := orders(tx, otc).
		Where("user_id = ?", userID).
		Where("base = ?", base)
	if counter != "" {
		q = q.Where("counter = ?", counter)
	}
	var out []domain.Order
	err := q.
		Where("side = ?", side).
		Where("cancelled = ?", false).
		Where("remaining > 0").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}

const defaultOrderLimit = 50

// Orders lists orders newest first, optionally scoped to one user, with
// cursor/limit paging. A non-positive limit falls back to the default.
func (s *Store) Orders(tx *gorm.DB, otc bool, userID int64, cursor, limit int) ([]domain.Order, error) {
	q := orders(tx, otc)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit <= 0 {
		limit = defaultOrderLimit
	}
	if cursor > 0 {
		q = q.Offset(cursor)
	}
	var out []domain.Order
	if err := q.Limit(limit).Order("updated_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}

// SetRemaining writes an order's remaining quantity absolutely. The new
// value is known exactly from the match outcome, so no expression needed.
func (s *Store) SetRemaining(tx *gorm.DB, otc bool, id int64, remaining decimal.Decimal) error {
	err := orders(tx, otc).Where("id = ?", id).Update("remaining", remaining).Error
	return domain.WrapError(domain.CodeStorage, err)
}

// MarkCancelled flags an order as cancelled, removing it from the book.
func (s *Store) MarkCancelled(tx *gorm.DB, otc bool, id int64) error {
	err := orders(tx, otc).Where("id = ?", id).Update("cancelled", true).Error
	return domain.WrapError(domain.CodeStorage, err)
}

// UpsertOtcOrder replaces a user's standing OTC quote for one
// (pair, side): at most one such row exists, and re-quoting resets its
// price, quantity and remaining. Safe as a select-then-write because all
// writes flow through the single writer.
func (s *Store) UpsertOtcOrder(tx *gorm.DB, o *domain.Order) error {
	var existing domain.Order
	err := orders(tx, true).
		Where("user_id = ?", o.UserID).
		Where("base = ? AND counter = ?", o.Base, o.Counter).
		Where("side = ?", o.Side).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.InsertOrder(tx, true, o)
	}
	if err != nil {
		return domain.WrapError(domain.CodeStorage, err)
	}

	o.ID = existing.ID
	o.CreatedAt = existing.CreatedAt
	err = orders(tx, true).Where("id = ?", existing.ID).Updates(map[string]any{
		"price":     o.Price,
		"qty":       o.Qty,
		"remaining": o.Remaining,
		"cancelled": false,
	}).Error
	return domain.WrapError(domain.CodeStorage, err)
}
