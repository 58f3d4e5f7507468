package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferReferralEarnings moves amount from referral earnings into the
// spendable balance and records the move as a completed profit transaction.
func (s *Service) TransferReferralEarnings(ctx context.Context, accountID uint, amount decimal.Decimal) (*models.Transaction, error) {
	const op = "TransferReferralEarnings"

	if err := checkAmount(op, amount); err != nil {
		return nil, err
	}
	if amount.LessThan(s.limits.MinReferralTransfer) {
		return nil, validationErr(op, "minimum transfer is %s", s.limits.MinReferralTransfer)
	}

	now := s.clock()
	t := &models.Transaction{
		AccountID:   accountID,
		Amount:      amount,
		Type:        models.TransactionProfit,
		Status:      models.StatusCompleted,
		Source:      models.SourceReferral,
		Origin:      models.OriginReferralTransfer,
		Description: "Referral earnings transferred to balance",
		DecidedAt:   &now,
	}

	err := s.repo.InTransaction(ctx, func(tx *gorm.DB) error {
		err := s.repo.DecrementBalanceGuarded(ctx, tx, accountID, repository.FieldReferralEarnings, amount)
		if errors.Is(err, repository.ErrGuardFailed) {
			return insufficientErr(op, fmt.Sprintf("referral earnings below %s", amount))
		}
		if err != nil {
			return err
		}
		if err := s.repo.IncrementBalance(ctx, tx, accountID, repository.FieldBalance, amount); err != nil {
			return err
		}
		return s.repo.CreateTransaction(ctx, t, tx)
	})
	if err != nil {
		return nil, storageErr(op, err)
	}

	s.logger.Infof("Account %d moved %s referral earnings to balance", accountID, amount)
	if account, err := s.repo.GetAccount(ctx, accountID, nil); err == nil && account != nil {
		s.notifyUser(account.Email, notify.EventReferralTransfer, transactionFields(t))
	}
	return t, nil
}

// RequestReferralWithdrawal submits a pending withdrawal paid from referral
// earnings.
func (s *Service) RequestReferralWithdrawal(ctx context.Context, accountID uint, amount decimal.Decimal, destination, idempotencyKey string) (*models.Transaction, error) {
	return s.SubmitWithdrawal(ctx, WithdrawalRequest{
		AccountID:          accountID,
		Amount:             amount,
		DestinationAddress: destination,
		Source:             models.SourceReferral,
		IdempotencyKey:     idempotencyKey,
	})
}
