package service

import (
	"context"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
)

const maxPageSize = 100

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type PlanInput struct {
	Name         string
	ROI          decimal.Decimal
	DurationDays int
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	IsActive     bool
}

func (in PlanInput) validate(op string) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return validationErr(op, "plan name is required")
	case in.DurationDays <= 0:
		return validationErr(op, "duration must be at least one day")
	case in.MinAmount.IsNegative(), in.MaxAmount.IsNegative():
		return validationErr(op, "plan bounds must not be negative")
	case in.MaxAmount.IsPositive() && in.MaxAmount.LessThan(in.MinAmount):
		return validationErr(op, "max amount is below min amount")
	}
	for _, bound := range []decimal.Decimal{in.MinAmount, in.MaxAmount} {
		if !utils.FitsNumeric(bound, utils.AmountIntDigits, utils.AmountScale) {
			return validationErr(op, "plan bound %s exceeds %d integer digits or %d decimal places", bound, utils.AmountIntDigits, utils.AmountScale)
		}
	}
	return checkRate(op, in.ROI)
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.InvestmentPlan, error) {
	const op = "CreatePlan"
	if err := in.validate(op); err != nil {
		return nil, err
	}

	plan := &models.InvestmentPlan{
		Name:         strings.TrimSpace(in.Name),
		ROI:          in.ROI,
		DurationDays: in.DurationDays,
		MinAmount:    in.MinAmount,
		MaxAmount:    in.MaxAmount,
		IsActive:     in.IsActive,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, storageErr(op, err)
	}
	s.logger.Infof("Plan %d (%s) created", plan.ID, plan.Name)
	return plan, nil
}

// UpdatePlan edits a plan. Open investments keep their own snapshot.
func (s *Service) UpdatePlan(ctx context.Context, id uint, in PlanInput) (*models.InvestmentPlan, error) {
	const op = "UpdatePlan"
	if err := in.validate(op); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if plan == nil {
		return nil, notFoundErr(op, "plan", id)
	}

	plan.Name = strings.TrimSpace(in.Name)
	plan.ROI = in.ROI
	plan.DurationDays = in.DurationDays
	plan.MinAmount = in.MinAmount
	plan.MaxAmount = in.MaxAmount
	plan.IsActive = in.IsActive
	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		return nil, storageErr(op, err)
	}
	return plan, nil
}

func (s *Service) DeletePlan(ctx context.Context, id uint) error {
	const op = "DeletePlan"
	deleted, err := s.repo.DeletePlan(ctx, id)
	if err != nil {
		return storageErr(op, err)
	}
	if !deleted {
		return notFoundErr(op, "plan", id)
	}
	return nil
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error) {
	plans, err := s.repo.ListPlans(ctx, activeOnly)
	if err != nil {
		return nil, storageErr("ListPlans", err)
	}
	return plans, nil
}

type WalletInput struct {
	Name     string
	Address  string
	Asset    string
	Network  string
	IsActive bool
}

func (s *Service) CreateWallet(ctx context.Context, in WalletInput) (*models.DepositWallet, error) {
	const op = "CreateWallet"

	wallet := &models.DepositWallet{
		Name:     strings.TrimSpace(in.Name),
		Address:  strings.TrimSpace(in.Address),
		Asset:    strings.ToUpper(strings.TrimSpace(in.Asset)),
		Network:  strings.TrimSpace(in.Network),
		IsActive: in.IsActive,
	}
	if wallet.Asset == "" {
		wallet.Asset = defaultAsset
	}
	switch {
	case wallet.Name == "":
		return nil, validationErr(op, "wallet name is required")
	case wallet.Address == "":
		return nil, validationErr(op, "wallet address is required")
	}
	if utils.IsBTC(wallet.Asset) {
		if err := utils.ValidateBTCAddress(wallet.Address, s.btcParams); err != nil {
			return nil, validationErr(op, "%v", err)
		}
		if wallet.Network == "" {
			wallet.Network = s.btcParams.Name
		}
	}

	if err := s.repo.CreateWallet(ctx, wallet, nil); err != nil {
		return nil, storageErr(op, err)
	}
	s.logger.Infof("Deposit wallet %d (%s %s) created", wallet.ID, wallet.Asset, wallet.Address)
	return wallet, nil
}

func (s *Service) SetWalletActive(ctx context.Context, id uint, active bool) (*models.DepositWallet, error) {
	const op = "SetWalletActive"

	wallet, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if wallet == nil {
		return nil, notFoundErr(op, "wallet", id)
	}

	wallet.IsActive = active
	if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
		return nil, storageErr(op, err)
	}
	return wallet, nil
}

func (s *Service) ListWallets(ctx context.Context, activeOnly bool) ([]*models.DepositWallet, error) {
	wallets, err := s.repo.ListWallets(ctx, activeOnly)
	if err != nil {
		return nil, storageErr("ListWallets", err)
	}
	return wallets, nil
}

// ListPending pages through pending transactions, oldest first, and reports
// the total pending count.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error) {
	const op = "ListPending"

	limit, offset = clampPage(limit, offset)

	txs, err := s.repo.ListTransactions(ctx, repository.TransactionFilter{
		Status: models.StatusPending,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, storageErr(op, err)
	}
	total, err := s.repo.CountTransactions(ctx, models.StatusPending)
	if err != nil {
		return nil, 0, storageErr(op, err)
	}
	return txs, total, nil
}
