package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Fi44er/roi_ledger/internal/metrics"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AccrualReport struct {
	Visited   int             `json:"visited"`
	Credited  int             `json:"credited"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Paid      decimal.Decimal `json:"paid"`
}

type accrualResult struct {
	profit    decimal.Decimal
	completed bool
	skipped   bool
}

func accrualKey(investmentID uint, day int) string {
	return fmt.Sprintf("accrual:%d:%d", investmentID, day)
}

// RunAccrual credits every active investment with the profit owed since its
// checkpoint and completes the matured ones. Each investment commits on its
// own; a failure is logged and counted without stopping the run.
func (s *Service) RunAccrual(ctx context.Context) (AccrualReport, error) {
	report := AccrualReport{Paid: decimal.Zero}

	invs, err := s.repo.ListActiveInvestments(ctx)
	if err != nil {
		return report, storageErr("RunAccrual", err)
	}

	now := s.clock()
	for _, inv := range invs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Visited++

		res, err := s.accrue(ctx, inv, now)
		if err != nil {
			report.Failed++
			metrics.AccrualInvestments.WithLabelValues("failed").Inc()
			s.logger.WithFields(logrus.Fields{
				"investment_id": inv.ID,
				"account_id":    inv.AccountID,
			}).Errorf("Accrual failed: %v", err)
			continue
		}
		if res.skipped {
			continue
		}
		if res.profit.IsPositive() {
			report.Credited++
			report.Paid = report.Paid.Add(res.profit)
			metrics.AccrualInvestments.WithLabelValues("credited").Inc()
		}
		if res.completed {
			report.Completed++
			metrics.AccrualInvestments.WithLabelValues("completed").Inc()
			s.announceCompletion(ctx, inv)
		}
	}

	s.logger.Infof("Accrual run finished: visited=%d credited=%d completed=%d failed=%d paid=%s",
		report.Visited, report.Credited, report.Completed, report.Failed, report.Paid)
	if report.Credited > 0 || report.Completed > 0 || report.Failed > 0 {
		s.notifyAdmin(notify.EventAccrualFinished, notify.Fields{
			"visited":   strconv.Itoa(report.Visited),
			"credited":  strconv.Itoa(report.Credited),
			"completed": strconv.Itoa(report.Completed),
			"failed":    strconv.Itoa(report.Failed),
			"paid":      report.Paid.StringFixed(utils.MoneyPlaces),
		})
	}
	return report, nil
}

// accrue pays the days owed to one investment. The checkpoint advance is
// guarded on the accrued_days value read before the run, so a concurrent
// run that already paid those days makes this one a no-op.
func (s *Service) accrue(ctx context.Context, inv *models.Investment, now time.Time) (accrualResult, error) {
	owed := inv.DaysOwed(now)
	mature := inv.IsMature(now)
	if owed == 0 && !mature {
		return accrualResult{skipped: true}, nil
	}

	toDays := inv.AccruedDays + owed
	profit := inv.ProfitFor(toDays).Sub(inv.ProfitFor(inv.AccruedDays))

	err := s.repo.InTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.AdvanceAccrual(ctx, tx, inv.ID, repository.AccrualAdvance{
			FromDays: inv.AccruedDays,
			ToDays:   toDays,
			Profit:   profit,
			Complete: mature,
			At:       now,
		}); err != nil {
			return err
		}

		if !profit.IsPositive() {
			return nil
		}

		if err := s.repo.IncrementBalance(ctx, tx, inv.AccountID, repository.FieldBalance, profit); err != nil {
			return err
		}

		key := accrualKey(inv.ID, toDays)
		investmentID := inv.ID
		return s.repo.CreateTransaction(ctx, &models.Transaction{
			AccountID:      inv.AccountID,
			Amount:         profit,
			Type:           models.TransactionProfit,
			Status:         models.StatusCompleted,
			Source:         models.SourcePrimary,
			Origin:         models.OriginAccrual,
			IdempotencyKey: &key,
			InvestmentID:   &investmentID,
			Description:    fmt.Sprintf("Profit for investment %d, days %d-%d", inv.ID, inv.AccruedDays+1, toDays),
			DecidedAt:      &now,
		}, tx)
	})
	if errors.Is(err, repository.ErrStatusChanged) {
		s.logger.Debugf("Investment %d already accrued by another run", inv.ID)
		return accrualResult{skipped: true}, nil
	}
	if err != nil {
		return accrualResult{}, err
	}

	return accrualResult{profit: profit, completed: mature}, nil
}

func (s *Service) announceCompletion(ctx context.Context, inv *models.Investment) {
	account, err := s.repo.GetAccount(ctx, inv.AccountID, nil)
	if err != nil || account == nil {
		s.logger.Warnf("Failed to load account %d for completion notice: %v", inv.AccountID, err)
		return
	}
	s.notifyUser(account.Email, notify.EventInvestmentCompleted, investmentFields(inv))
}
