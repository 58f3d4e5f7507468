package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	AccountID *uint
	Status    models.TransactionStatus
	Type      models.TransactionType
	Limit     int
	Offset    int
}

func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id uint, tx *gorm.DB) (*models.Transaction, error) {
	var t models.Transaction
	err := r.conn(tx).WithContext(ctx).First(&t, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &t, nil
}

func (r *Repository) GetTransactionByIdempotencyKey(ctx context.Context, key string, tx *gorm.DB) (*models.Transaction, error) {
	var t models.Transaction
	err := r.conn(tx).WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&t).
		Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by key: %w", err)
	}
	return &t, nil
}

// TransitionStatus moves a transaction from one status to another with the
// current status as the guard. A concurrent decision that already moved the
// row leaves zero rows affected and yields ErrStatusChanged.
func (r *Repository) TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.TransactionStatus, at time.Time) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "decided_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var txs []*models.Transaction
	if err := q.Order("created_at ASC, id ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *Repository) CountTransactions(ctx context.Context, status models.TransactionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
