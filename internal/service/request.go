package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/metrics"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultAsset = "BTC"

type DepositRequest struct {
	AccountID      uint
	Amount         decimal.Decimal
	ProofHash      string
	WalletID       *uint
	IdempotencyKey string
}

type WithdrawalRequest struct {
	AccountID          uint
	Amount             decimal.Decimal
	DestinationAddress string
	Asset              string
	Source             models.Source
	IdempotencyKey     string
}

// checkAmount rejects amounts that are not positive or that the amount
// columns would round or overflow.
func checkAmount(op string, amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return validationErr(op, "amount must be positive")
	case !utils.FitsNumeric(amount, utils.AmountIntDigits, utils.AmountScale):
		return validationErr(op, "amount %s exceeds %d integer digits or %d decimal places", amount, utils.AmountIntDigits, utils.AmountScale)
	}
	return nil
}

func checkRate(op string, roi decimal.Decimal) error {
	switch {
	case !roi.IsPositive():
		return validationErr(op, "roi must be positive")
	case !utils.FitsNumeric(roi, utils.RateIntDigits, utils.RateScale):
		return validationErr(op, "roi %s exceeds %d integer digits or %d decimal places", roi, utils.RateIntDigits, utils.RateScale)
	}
	return nil
}

func clientKey(accountID uint, key string) *string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	k := fmt.Sprintf("client:%d:%s", accountID, key)
	return &k
}

// SubmitDeposit records a pending deposit. Balances move only on approval.
func (s *Service) SubmitDeposit(ctx context.Context, req DepositRequest) (*models.Transaction, error) {
	const op = "SubmitDeposit"

	if err := checkAmount(op, req.Amount); err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, req.AccountID, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if account == nil {
		return nil, notFoundErr(op, "account", req.AccountID)
	}

	key := clientKey(req.AccountID, req.IdempotencyKey)
	if existing, err := s.replayed(ctx, op, key, models.TransactionDeposit); existing != nil || err != nil {
		return existing, err
	}

	t := &models.Transaction{
		AccountID:      req.AccountID,
		Amount:         req.Amount,
		Type:           models.TransactionDeposit,
		Status:         models.StatusPending,
		Source:         models.SourcePrimary,
		Origin:         models.OriginUser,
		IdempotencyKey: key,
		ProofHash:      strings.TrimSpace(req.ProofHash),
		Asset:          defaultAsset,
	}

	if req.WalletID != nil {
		wallet, err := s.repo.GetWallet(ctx, *req.WalletID)
		if err != nil {
			return nil, storageErr(op, err)
		}
		if wallet == nil {
			return nil, notFoundErr(op, "wallet", *req.WalletID)
		}
		if !wallet.IsActive {
			return nil, validationErr(op, "wallet %d is not active", wallet.ID)
		}
		t.WalletID = &wallet.ID
		t.Asset = wallet.Asset
	}

	created, err := s.create(ctx, op, t)
	if err != nil {
		metrics.Submissions.WithLabelValues(string(models.TransactionDeposit), Kind(err)).Inc()
		return nil, err
	}
	metrics.Submissions.WithLabelValues(string(models.TransactionDeposit), "ok").Inc()

	s.logger.Infof("Deposit %d submitted by account %d: %s", created.ID, created.AccountID, created.Amount)
	fields := transactionFields(created)
	s.notifyAdmin(notify.EventDepositSubmitted, fields)
	s.notifyUser(account.Email, notify.EventDepositSubmitted, fields)
	return created, nil
}

// SubmitWithdrawal records a pending withdrawal from the primary balance or
// referral earnings. The funds check here is advisory; Decide re-checks it
// atomically.
func (s *Service) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.Transaction, error) {
	const op = "SubmitWithdrawal"

	if req.Source == "" {
		req.Source = models.SourcePrimary
	}

	var minimum decimal.Decimal
	switch req.Source {
	case models.SourcePrimary:
		minimum = s.limits.MinPrimaryWithdrawal
	case models.SourceReferral:
		minimum = s.limits.MinReferralWithdrawal
	default:
		return nil, validationErr(op, "unknown source %q", req.Source)
	}

	if err := checkAmount(op, req.Amount); err != nil {
		return nil, err
	}
	if req.Amount.LessThan(minimum) {
		return nil, validationErr(op, "minimum %s withdrawal is %s", req.Source, minimum)
	}

	dest := strings.TrimSpace(req.DestinationAddress)
	if dest == "" {
		return nil, validationErr(op, "destination address is required")
	}
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		asset = defaultAsset
	}
	if utils.IsBTC(asset) {
		if err := utils.ValidateBTCAddress(dest, s.btcParams); err != nil {
			return nil, validationErr(op, "%v", err)
		}
	}

	account, err := s.repo.GetAccount(ctx, req.AccountID, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if account == nil {
		return nil, notFoundErr(op, "account", req.AccountID)
	}

	key := clientKey(req.AccountID, req.IdempotencyKey)
	if existing, err := s.replayed(ctx, op, key, models.TransactionWithdrawal); existing != nil || err != nil {
		return existing, err
	}

	available := account.Balance
	if req.Source == models.SourceReferral {
		available = account.ReferralEarnings
	}
	if available.LessThan(req.Amount) {
		metrics.Submissions.WithLabelValues(string(models.TransactionWithdrawal), "insufficient_funds").Inc()
		return nil, insufficientErr(op, fmt.Sprintf("available %s balance is %s", req.Source, available))
	}

	t := &models.Transaction{
		AccountID:          req.AccountID,
		Amount:             req.Amount,
		Type:               models.TransactionWithdrawal,
		Status:             models.StatusPending,
		Source:             req.Source,
		Origin:             models.OriginUser,
		IdempotencyKey:     key,
		Asset:              asset,
		DestinationAddress: dest,
	}

	created, err := s.create(ctx, op, t)
	if err != nil {
		metrics.Submissions.WithLabelValues(string(models.TransactionWithdrawal), Kind(err)).Inc()
		return nil, err
	}
	metrics.Submissions.WithLabelValues(string(models.TransactionWithdrawal), "ok").Inc()

	s.logger.Infof("Withdrawal %d (%s) submitted by account %d: %s", created.ID, created.Source, created.AccountID, created.Amount)
	fields := transactionFields(created)
	s.notifyAdmin(notify.EventWithdrawalSubmitted, fields)
	s.notifyUser(account.Email, notify.EventWithdrawalSubmitted, fields)
	return created, nil
}

// replayed returns the transaction previously created under key, if any.
func (s *Service) replayed(ctx context.Context, op string, key *string, typ models.TransactionType) (*models.Transaction, error) {
	if key == nil {
		return nil, nil
	}
	existing, err := s.repo.GetTransactionByIdempotencyKey(ctx, *key, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if existing == nil {
		return nil, nil
	}
	if existing.Type != typ {
		return nil, conflictErr(op, "idempotency key already used for a "+string(existing.Type), nil)
	}
	return existing, nil
}

// create inserts t. A duplicate idempotency key from a concurrent retry
// resolves to the row that won.
func (s *Service) create(ctx context.Context, op string, t *models.Transaction) (*models.Transaction, error) {
	err := s.repo.CreateTransaction(ctx, t, nil)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && t.IdempotencyKey != nil {
		existing, lookupErr := s.replayed(ctx, op, t.IdempotencyKey, t.Type)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, storageErr(op, err)
}

func transactionFields(t *models.Transaction) notify.Fields {
	fields := notify.Fields{
		"transaction_id": strconv.FormatUint(uint64(t.ID), 10),
		"account_id":     strconv.FormatUint(uint64(t.AccountID), 10),
		"type":           string(t.Type),
		"source":         string(t.Source),
		"amount":         t.Amount.StringFixed(utils.MoneyPlaces),
		"status":         string(t.Status),
	}
	if t.Asset != "" {
		fields["asset"] = t.Asset
	}
	if t.DestinationAddress != "" {
		fields["destination"] = t.DestinationAddress
	}
	if t.ProofHash != "" {
		fields["proof_hash"] = t.ProofHash
	}
	return fields
}
