package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceField names one of the two money columns on accounts. Only these
// constants are ever interpolated into SQL.
type BalanceField string

const (
	FieldBalance          BalanceField = "balance"
	FieldReferralEarnings BalanceField = "referral_earnings"
)

func (f BalanceField) valid() bool {
	return f == FieldBalance || f == FieldReferralEarnings
}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account, tx *gorm.DB) error {
	return r.conn(tx).WithContext(ctx).Create(account).Error
}

func (r *Repository) GetAccount(ctx context.Context, id uint, tx *gorm.DB) (*models.Account, error) {
	var account models.Account
	err := r.conn(tx).WithContext(ctx).First(&account, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return &account, nil
}

func (r *Repository) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).First(&account, "referral_code = ?", code).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return &account, nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// IncrementBalance atomically adds amount to field. It never reads the
// current value into the application.
func (r *Repository) IncrementBalance(ctx context.Context, tx *gorm.DB, accountID uint, field BalanceField, amount decimal.Decimal) error {
	if !field.valid() {
		return fmt.Errorf("unknown balance field %q", field)
	}
	col := string(field)

	res := r.conn(tx).WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{col: gorm.Expr(col+" + ?", amount)})
	if res.Error != nil {
		return fmt.Errorf("failed to credit %s for account %d: %w", col, accountID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DecrementBalanceGuarded subtracts amount from field only where
// field >= amount, in a single UPDATE. ErrGuardFailed when the guard fails.
func (r *Repository) DecrementBalanceGuarded(ctx context.Context, tx *gorm.DB, accountID uint, field BalanceField, amount decimal.Decimal) error {
	if !field.valid() {
		return fmt.Errorf("unknown balance field %q", field)
	}
	col := string(field)
	db := r.conn(tx).WithContext(ctx)

	res := db.Model(&models.Account{}).
		Where("id = ? AND "+col+" >= ?", accountID, amount).
		Updates(map[string]interface{}{col: gorm.Expr(col+" - ?", amount)})
	if res.Error != nil {
		return fmt.Errorf("failed to debit %s for account %d: %w", col, accountID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check account %d: %w", accountID, err)
	}
	if count == 0 {
		return ErrAccountNotFound
	}
	return ErrGuardFailed
}
