package service

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const notifyTimeout = 15 * time.Second

type Repository interface {
	InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateAccount(ctx context.Context, account *models.Account, tx *gorm.DB) error
	GetAccount(ctx context.Context, id uint, tx *gorm.DB) (*models.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	IncrementBalance(ctx context.Context, tx *gorm.DB, accountID uint, field repository.BalanceField, amount decimal.Decimal) error
	DecrementBalanceGuarded(ctx context.Context, tx *gorm.DB, accountID uint, field repository.BalanceField, amount decimal.Decimal) error

	CreateTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error
	GetTransaction(ctx context.Context, id uint, tx *gorm.DB) (*models.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, key string, tx *gorm.DB) (*models.Transaction, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.TransactionStatus, at time.Time) error
	ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*models.Transaction, error)
	CountTransactions(ctx context.Context, status models.TransactionStatus) (int64, error)

	CreateInvestment(ctx context.Context, inv *models.Investment, tx *gorm.DB) error
	GetInvestment(ctx context.Context, id uint, tx *gorm.DB) (*models.Investment, error)
	ListActiveInvestments(ctx context.Context) ([]*models.Investment, error)
	ListInvestmentsByAccount(ctx context.Context, accountID uint) ([]*models.Investment, error)
	AdvanceAccrual(ctx context.Context, tx *gorm.DB, id uint, adv repository.AccrualAdvance) error

	CreatePlan(ctx context.Context, plan *models.InvestmentPlan) error
	GetPlan(ctx context.Context, id uint) (*models.InvestmentPlan, error)
	UpdatePlan(ctx context.Context, plan *models.InvestmentPlan) error
	DeletePlan(ctx context.Context, id uint) (bool, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error)

	CreateWallet(ctx context.Context, wallet *models.DepositWallet, tx *gorm.DB) error
	GetWallet(ctx context.Context, id uint) (*models.DepositWallet, error)
	UpdateWallet(ctx context.Context, wallet *models.DepositWallet) error
	ListWallets(ctx context.Context, activeOnly bool) ([]*models.DepositWallet, error)
}

type Options struct {
	Limits    config.Limits
	BTCParams *chaincfg.Params
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

type Service struct {
	repo      Repository
	notifier  notify.Notifier
	logger    *utils.Logger
	limits    config.Limits
	btcParams *chaincfg.Params
	now       func() time.Time

	pending sync.WaitGroup
}

func NewService(repo Repository, notifier notify.Notifier, logger *utils.Logger, opts Options) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BTCParams == nil {
		opts.BTCParams = &chaincfg.MainNetParams
	}

	return &Service{
		repo:      repo,
		notifier:  notifier,
		logger:    logger,
		limits:    opts.Limits,
		btcParams: opts.BTCParams,
		now:       opts.Now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Drain blocks until every in-flight notification has been attempted.
func (s *Service) Drain() {
	s.pending.Wait()
}

func (s *Service) notifyAdmin(event notify.Event, fields notify.Fields) {
	s.dispatch(event, func(ctx context.Context) error {
		return s.notifier.NotifyAdmin(ctx, event, fields)
	})
}

func (s *Service) notifyUser(email string, event notify.Event, fields notify.Fields) {
	if email == "" {
		return
	}
	s.dispatch(event, func(ctx context.Context) error {
		return s.notifier.NotifyUser(ctx, email, event, fields)
	})
}

// dispatch runs a delivery off the caller's goroutine. Only called after the
// ledger change has committed; failures are logged and dropped.
func (s *Service) dispatch(event notify.Event, deliver func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := deliver(ctx); err != nil {
			s.logger.WithFields(logrus.Fields{"event": event}).Warnf("notification failed: %v", err)
		}
	}()
}
