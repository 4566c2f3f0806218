package storage

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// PositionForUpdate loads one user's position in one currency, locked
// for the transaction, or NOT_FOUND when the row does not exist yet.
func (s *Store) PositionForUpdate(tx *gorm.DB, userID int64, base string) (*domain.Position, error) {
	var p domain.Position
	err := s.forUpdate(tx.Model(&domain.Position{}), true).
		Where("user_id = ? AND base = ?", userID, base).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "position of user %d in %s not found", userID, base)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &p, nil
}

// InsertPosition creates the first position row for a (user, currency).
func (s *Store) InsertPosition(tx *gorm.DB, p *domain.Position) error {
	return domain.WrapError(domain.CodeStorage, tx.Create(p).Error)
}

// AddPositionQty applies a signed delta to a position relative to its
// stored value, so concurrent readers never see a stale absolute write.
func (s *Store) AddPositionQty(tx *gorm.DB, id int64, delta decimal.Decimal) error {
	err := tx.Model(&domain.Position{}).Where("id = ?", id).
		Update("qty", gorm.Expr("qty + ?", delta)).Error
	return domain.WrapError(domain.CodeStorage, err)
}

// PositionByID loads one position row.
func (s *Store) PositionByID(tx *gorm.DB, id int64) (*domain.Position, error) {
	var p domain.Position
	err := tx.Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "position %d not found", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &p, nil
}

// PositionByUserBase loads one user's position in one currency without
// locking. Absence is NOT_FOUND; callers treating it as zero handle that.
func (s *Store) PositionByUserBase(tx *gorm.DB, userID int64, base string) (*domain.Position, error) {
	var p domain.Position
	err := tx.Where("user_id = ? AND base = ?", userID, base).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "position of user %d in %s not found", userID, base)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &p, nil
}

const defaultPositionLimit = 100

// Positions lists a user's positions across currencies, or everyone's
// when userID is zero, with cursor/limit paging.
func (s *Store) Positions(tx *gorm.DB, userID int64, cursor, limit int) ([]domain.Position, error) {
	q := tx.Model(&domain.Position{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit <= 0 {
		limit = defaultPositionLimit
	}
	if cursor > 0 {
		q = q.Offset(cursor)
	}
	var out []domain.Position
	if err := q.Limit(limit).Order("user_id ASC").Order("base ASC").Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}
