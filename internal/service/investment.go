package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/Fi44er/roi_ledger/internal/metrics"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OpenInvestment funds a new investment in planID from the account balance.
func (s *Service) OpenInvestment(ctx context.Context, accountID, planID uint, amount decimal.Decimal) (*models.Investment, error) {
	const op = "OpenInvestment"

	if err := checkAmount(op, amount); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if plan == nil {
		return nil, validationErr(op, "plan %d does not exist", planID)
	}
	if !plan.IsActive {
		return nil, validationErr(op, "plan %d is not active", planID)
	}
	if !plan.Accepts(amount) {
		return nil, validationErr(op, "amount %s is outside plan bounds", amount)
	}

	return s.openFunded(ctx, op, accountID, &plan.ID, amount, plan.ROI, plan.DurationDays)
}

// OpenCustomInvestment opens a plan-less investment on the admin's terms.
func (s *Service) OpenCustomInvestment(ctx context.Context, accountID uint, amount, roi decimal.Decimal, durationDays int) (*models.Investment, error) {
	const op = "OpenCustomInvestment"

	if err := checkAmount(op, amount); err != nil {
		return nil, err
	}
	if err := checkRate(op, roi); err != nil {
		return nil, err
	}
	if durationDays <= 0 {
		return nil, validationErr(op, "duration must be at least one day")
	}

	return s.openFunded(ctx, op, accountID, nil, amount, roi, durationDays)
}

// openFunded debits the balance with a guarded update and creates the
// investment in the same transaction.
func (s *Service) openFunded(ctx context.Context, op string, accountID uint, planID *uint, amount, roi decimal.Decimal, durationDays int) (*models.Investment, error) {
	inv := models.NewInvestment(accountID, planID, amount, roi, durationDays, s.clock())

	err := s.repo.InTransaction(ctx, func(tx *gorm.DB) error {
		err := s.repo.DecrementBalanceGuarded(ctx, tx, accountID, repository.FieldBalance, amount)
		if errors.Is(err, repository.ErrGuardFailed) {
			return insufficientErr(op, "balance below "+amount.String())
		}
		if err != nil {
			return err
		}
		return s.repo.CreateInvestment(ctx, inv, tx)
	})
	if err != nil {
		err = storageErr(op, err)
		metrics.InvestmentsOpened.WithLabelValues(Kind(err)).Inc()
		return nil, err
	}
	metrics.InvestmentsOpened.WithLabelValues("ok").Inc()

	s.logger.Infof("Investment %d opened for account %d: %s at %s%% for %d days",
		inv.ID, accountID, amount, roi, durationDays)

	fields := investmentFields(inv)
	s.notifyAdmin(notify.EventInvestmentOpened, fields)
	if account, err := s.repo.GetAccount(ctx, accountID, nil); err == nil && account != nil {
		s.notifyUser(account.Email, notify.EventInvestmentOpened, fields)
	}
	return inv, nil
}

func (s *Service) ListInvestments(ctx context.Context, accountID uint) ([]*models.Investment, error) {
	invs, err := s.repo.ListInvestmentsByAccount(ctx, accountID)
	if err != nil {
		return nil, storageErr("ListInvestments", err)
	}
	return invs, nil
}

func investmentFields(inv *models.Investment) notify.Fields {
	return notify.Fields{
		"investment_id": strconv.FormatUint(uint64(inv.ID), 10),
		"account_id":    strconv.FormatUint(uint64(inv.AccountID), 10),
		"amount":        inv.Amount.StringFixed(utils.MoneyPlaces),
		"roi":           inv.ROI.String(),
		"duration_days": strconv.Itoa(inv.DurationDays),
		"end_date":      inv.EndDate.Format("2006-01-02 15:04:05"),
	}
}
