package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateWallet(ctx context.Context, wallet *models.DepositWallet, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *Repository) GetWallet(ctx context.Context, id uint) (*models.DepositWallet, error) {
	var wallet models.DepositWallet
	err := r.db.WithContext(ctx).First(&wallet, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %d: %w", id, err)
	}
	return &wallet, nil
}

func (r *Repository) UpdateWallet(ctx context.Context, wallet *models.DepositWallet) error {
	err := r.db.WithContext(ctx).
		Model(wallet).
		Select("name", "address", "asset", "network", "is_active").
		Updates(wallet).Error
	if err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
	}
	return nil
}

func (r *Repository) ListWallets(ctx context.Context, activeOnly bool) ([]*models.DepositWallet, error) {
	q := r.db.WithContext(ctx).Model(&models.DepositWallet{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var wallets []*models.DepositWallet
	if err := q.Order("id ASC").Find(&wallets).Error; err != nil {
		r.logger.Errorf("failed to list wallets: %v", err)
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
