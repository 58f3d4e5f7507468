package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Fi44er/roi_ledger/internal/metrics"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func referralKey(depositID uint) string {
	return fmt.Sprintf("referral:%d", depositID)
}

type referralCredit struct {
	referrerID uint
	bonus      decimal.Decimal
}

// Decide moves a pending transaction to completed or rejected. The status
// guard and the balance mutation commit together or not at all: a failed
// withdrawal debit leaves the transaction pending.
func (s *Service) Decide(ctx context.Context, transactionID uint, decision models.TransactionStatus) (*models.Transaction, error) {
	const op = "Decide"

	if decision != models.StatusCompleted && decision != models.StatusRejected {
		return nil, validationErr(op, "decision must be %q or %q", models.StatusCompleted, models.StatusRejected)
	}

	t, err := s.repo.GetTransaction(ctx, transactionID, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if t == nil {
		return nil, notFoundErr(op, "transaction", transactionID)
	}

	log := s.logger.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"type":           t.Type,
		"decision":       decision,
	})

	if err := t.Status.Transition(decision); err != nil {
		s.recordDecision(t, decision, ErrConflict)
		return nil, conflictErr(op, "transaction already processed", err)
	}

	account, err := s.repo.GetAccount(ctx, t.AccountID, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if account == nil {
		return nil, notFoundErr(op, "account", t.AccountID)
	}

	now := s.clock()
	var credit *referralCredit

	err = s.repo.InTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.TransitionStatus(ctx, tx, t.ID, models.StatusPending, decision, now); err != nil {
			if errors.Is(err, repository.ErrStatusChanged) {
				return conflictErr(op, "transaction already processed", err)
			}
			return err
		}

		if decision == models.StatusRejected {
			return nil
		}

		switch t.Type {
		case models.TransactionDeposit:
			if err := s.repo.IncrementBalance(ctx, tx, t.AccountID, repository.FieldBalance, t.Amount); err != nil {
				return err
			}
			if account.ReferredByID != nil {
				c, err := s.creditReferralBonus(ctx, tx, t, *account.ReferredByID)
				if err != nil {
					return err
				}
				credit = c
			}
		case models.TransactionWithdrawal:
			field := repository.FieldBalance
			if t.Source == models.SourceReferral {
				field = repository.FieldReferralEarnings
			}
			err := s.repo.DecrementBalanceGuarded(ctx, tx, t.AccountID, field, t.Amount)
			if errors.Is(err, repository.ErrGuardFailed) {
				return insufficientErr(op, fmt.Sprintf("%s balance below %s", field, t.Amount))
			}
			if err != nil {
				return err
			}
		default:
			return validationErr(op, "%s transactions are not approvable", t.Type)
		}
		return nil
	})
	if err != nil {
		err = storageErr(op, err)
		s.recordDecision(t, decision, err)
		log.Warnf("Decision failed: %v", err)
		return nil, err
	}

	t.Status = decision
	t.DecidedAt = &now
	s.recordDecision(t, decision, nil)
	log.Infof("Transaction %d %s", t.ID, decision)

	event := notify.EventTransactionApproved
	if decision == models.StatusRejected {
		event = notify.EventTransactionRejected
	}
	fields := transactionFields(t)
	s.notifyAdmin(event, fields)
	s.notifyUser(account.Email, event, fields)

	if credit != nil {
		s.announceReferralBonus(ctx, t, credit)
	}

	return t, nil
}

// creditReferralBonus credits the referrer's earnings for a completed deposit
// inside tx. The deposit id is the idempotency key, so a replay is a conflict
// rather than a second credit.
func (s *Service) creditReferralBonus(ctx context.Context, tx *gorm.DB, deposit *models.Transaction, referrerID uint) (*referralCredit, error) {
	const op = "creditReferralBonus"

	bonus := utils.PercentOf(deposit.Amount, s.limits.ReferralBonusPercent)
	if !bonus.IsPositive() {
		return nil, nil
	}

	key := referralKey(deposit.ID)
	existing, err := s.repo.GetTransactionByIdempotencyKey(ctx, key, tx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictErr(op, "referral bonus already credited for deposit "+strconv.FormatUint(uint64(deposit.ID), 10), nil)
	}

	if err := s.repo.IncrementBalance(ctx, tx, referrerID, repository.FieldReferralEarnings, bonus); err != nil {
		return nil, err
	}

	depositID := deposit.ID
	err = s.repo.CreateTransaction(ctx, &models.Transaction{
		AccountID:            referrerID,
		Amount:               bonus,
		Type:                 models.TransactionProfit,
		Status:               models.StatusCompleted,
		Source:               models.SourceReferral,
		Origin:               models.OriginReferralBonus,
		IdempotencyKey:       &key,
		RelatedTransactionID: &depositID,
		Description:          fmt.Sprintf("Referral bonus for deposit %d", deposit.ID),
	}, tx)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, conflictErr(op, "referral bonus already credited", err)
	}
	if err != nil {
		return nil, err
	}

	return &referralCredit{referrerID: referrerID, bonus: bonus}, nil
}

func (s *Service) announceReferralBonus(ctx context.Context, deposit *models.Transaction, credit *referralCredit) {
	referrer, err := s.repo.GetAccount(ctx, credit.referrerID, nil)
	if err != nil || referrer == nil {
		s.logger.Warnf("Failed to load referrer %d for bonus notice: %v", credit.referrerID, err)
		return
	}
	s.logger.Infof("Referral bonus %s credited to account %d for deposit %d", credit.bonus, referrer.ID, deposit.ID)
	s.notifyUser(referrer.Email, notify.EventReferralBonus, notify.Fields{
		"deposit_id": strconv.FormatUint(uint64(deposit.ID), 10),
		"amount":     credit.bonus.StringFixed(utils.MoneyPlaces),
	})
}

func (s *Service) recordDecision(t *models.Transaction, decision models.TransactionStatus, err error) {
	metrics.Decisions.WithLabelValues(string(t.Type), string(decision), Kind(err)).Inc()
}
