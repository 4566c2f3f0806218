package storage

import (
	"errors"

	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// InsertTransfer appends an immutable transfer record.
func (s *Store) InsertTransfer(tx *gorm.DB, t *domain.Transfer) error {
	return domain.WrapError(domain.CodeStorage, tx.Create(t).Error)
}

// TransferByID loads one transfer record.
func (s *Store) TransferByID(tx *gorm.DB, id int64) (*domain.Transfer, error) {
	var t domain.Transfer
	err := tx.Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.CodeNotFound, "transfer %d not found", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return &t, nil
}

const defaultTransferLimit = 100

// Transfers lists transfer records newest first with cursor/limit paging.
func (s *Store) Transfers(tx *gorm.DB, cursor, limit int) ([]domain.Transfer, error) {
	return s.transfers(tx.Model(&domain.Transfer{}), cursor, limit)
}

// UserTransfers lists the transfers a user took part in on either end,
// newest first with cursor/limit paging.
func (s *Store) UserTransfers(tx *gorm.DB, userID int64, cursor, limit int) ([]domain.Transfer, error) {
	q := tx.Model(&domain.Transfer{}).
		Where("src_user_id = ? OR dst_user_id = ?", userID, userID)
	return s.transfers(q, cursor, limit)
}

func (s *Store) transfers(q *gorm.DB, cursor, limit int) ([]domain.Transfer, error) {
	if limit <= 0 {
		limit = defaultTransferLimit
	}
	if cursor > 0 {
		q = q.Offset(cursor)
	}
	var out []domain.Transfer
	if err := q.Limit(limit).Order("updated_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, domain.WrapError(domain.CodeStorage, err)
	}
	return out, nil
}
