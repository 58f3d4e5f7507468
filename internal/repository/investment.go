package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (r *Repository) CreateInvestment(ctx context.Context, inv *models.Investment, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (r *Repository) GetInvestment(ctx context.Context, id uint, tx *gorm.DB) (*models.Investment, error) {
	var inv models.Investment
	err := r.conn(tx).WithContext(ctx).First(&inv, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}
	return &inv, nil
}

func (r *Repository) ListActiveInvestments(ctx context.Context) ([]*models.Investment, error) {
	var invs []*models.Investment
	err := r.db.WithContext(ctx).
		Where("status = ?", models.InvestmentActive).
		Order("id ASC").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active investments: %w", err)
	}
	return invs, nil
}

func (r *Repository) ListInvestmentsByAccount(ctx context.Context, accountID uint) ([]*models.Investment, error) {
	var invs []*models.Investment
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return invs, nil
}

// AccrualAdvance moves an investment checkpoint forward.
type AccrualAdvance struct {
	FromDays int
	ToDays   int
	Profit   decimal.Decimal
	Complete bool
	At       time.Time
}

// AdvanceAccrual applies a checkpoint move guarded on the previously read
// accrued_days and active status. ErrStatusChanged when another run got there
// first.
func (r *Repository) AdvanceAccrual(ctx context.Context, tx *gorm.DB, id uint, adv AccrualAdvance) error {
	updates := map[string]interface{}{
		"accrued_days":    adv.ToDays,
		"last_accrual_at": adv.At,
		"profit_paid":     gorm.Expr("profit_paid + ?", adv.Profit),
	}
	if adv.Complete {
		updates["status"] = models.InvestmentCompleted
	}

	res := r.conn(tx).WithContext(ctx).
		Model(&models.Investment{}).
		Where("id = ? AND accrued_days = ? AND status = ?", id, adv.FromDays, models.InvestmentActive).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to advance accrual for investment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}
