package storage

import (
	"errors"

	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// InsertContracts appends executed trade rows and fills in their ids.
func (s *Store) InsertContracts(tx *gorm.DB, contracts []domain.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	return domain.WrapError(domain.CodeStorage, tx.Create(&contracts).Error)
}

// ContractByID loads one trade record.
func (s *Store) ContractByID(tx *gorm.DB, id int64) (*domain.Contract, error) {
	var c domain.Contract
	err := tx.Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "contract %d not found", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &c, nil
}

const defaultContractLimit = 50

// Contracts lists trade records of one OTC-ness newest first, optionally
// scoped to one user and one pair, with cursor/limit paging.
func (s *Store) Contracts(tx *gorm.DB, userID int64, base, counter string, otc bool, cursor, limit int) ([]domain.Contract, error) {
	q := tx.Model(&domain.Contract{}).Where("otc = ?", otc)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if base != "" {
		q = q.Where("base = ?", base)
	}
	if counter != "" {
		q = q.Where("counter = ?", counter)
	}
	if limit <= 0 {
		limit = defaultContractLimit
	}
	if cursor > 0 {
		q = q.Offset(cursor)
	}
	var out []domain.Contract
	if err := q.Limit(limit).Order("updated_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}
