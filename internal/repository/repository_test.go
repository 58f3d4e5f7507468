package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/internal/repository/repotest"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*repository.Repository, *gorm.DB) {
	gdb := repotest.NewDB(t)
	return repository.NewRepository(gdb, utils.DiscardLogger()), gdb
}

func newAccount(t *testing.T, repo *repository.Repository, email string, balance string) *models.Account {
	acc := &models.Account{
		Email:        email,
		Role:         models.RoleUser,
		ReferralCode: "code-" + email,
		Balance:      dec(balance),
	}
	require.NoError(t, repo.CreateAccount(context.Background(), acc, nil))
	return acc
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	acc, err := repo.GetAccount(ctx, 42, nil)
	require.NoError(t, err)
	assert.Nil(t, acc)

	tx, err := repo.GetTransaction(ctx, 42, nil)
	require.NoError(t, err)
	assert.Nil(t, tx)

	plan, err := repo.GetPlan(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestDecrementBalanceGuarded(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "100")

	err := repo.DecrementBalanceGuarded(ctx, nil, acc.ID, repository.FieldBalance, dec("150"))
	assert.True(t, errors.Is(err, repository.ErrGuardFailed))

	require.NoError(t, repo.DecrementBalanceGuarded(ctx, nil, acc.ID, repository.FieldBalance, dec("100")))
	got, err := repo.GetAccount(ctx, acc.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	err = repo.DecrementBalanceGuarded(ctx, nil, 9999, repository.FieldBalance, dec("1"))
	assert.True(t, errors.Is(err, repository.ErrAccountNotFound))

	err = repo.DecrementBalanceGuarded(ctx, nil, acc.ID, repository.BalanceField("email"), dec("1"))
	assert.Error(t, err)
}

func TestIncrementBalance(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "0")

	require.NoError(t, repo.IncrementBalance(ctx, nil, acc.ID, repository.FieldReferralEarnings, dec("12.5")))
	require.NoError(t, repo.IncrementBalance(ctx, nil, acc.ID, repository.FieldReferralEarnings, dec("0.5")))

	got, err := repo.GetAccount(ctx, acc.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.ReferralEarnings.Equal(dec("13")), got.ReferralEarnings.String())
	assert.True(t, got.Balance.IsZero())

	err = repo.IncrementBalance(ctx, nil, 9999, repository.FieldBalance, dec("1"))
	assert.True(t, errors.Is(err, repository.ErrAccountNotFound))
}

func TestConcurrentGuardedDebitsNeverOverdraw(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "100")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementBalanceGuarded(ctx, nil, acc.ID, repository.FieldBalance, dec("30")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	got, err := repo.GetAccount(ctx, acc.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("10")), got.Balance.String())
}

func TestTransitionStatusIsSingleShot(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "0")

	tx := &models.Transaction{
		AccountID: acc.ID,
		Amount:    dec("10"),
		Type:      models.TransactionDeposit,
		Status:    models.StatusPending,
		Source:    models.SourcePrimary,
		Origin:    models.OriginUser,
	}
	require.NoError(t, repo.CreateTransaction(ctx, tx, nil))

	now := time.Now().UTC()
	require.NoError(t, repo.TransitionStatus(ctx, nil, tx.ID, models.StatusPending, models.StatusCompleted, now))
	err := repo.TransitionStatus(ctx, nil, tx.ID, models.StatusPending, models.StatusRejected, now)
	assert.True(t, errors.Is(err, repository.ErrStatusChanged))

	got, err := repo.GetTransaction(ctx, tx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.DecidedAt)
}

func TestIdempotencyKeyIsUnique(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "0")

	key := "referral:1"
	mk := func() *models.Transaction {
		return &models.Transaction{
			AccountID:      acc.ID,
			Amount:         dec("1"),
			Type:           models.TransactionProfit,
			Status:         models.StatusCompleted,
			Source:         models.SourceReferral,
			Origin:         models.OriginReferralBonus,
			IdempotencyKey: &key,
		}
	}
	require.NoError(t, repo.CreateTransaction(ctx, mk(), nil))
	err := repo.CreateTransaction(ctx, mk(), nil)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err)

	found, err := repo.GetTransactionByIdempotencyKey(ctx, key, nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.OriginReferralBonus, found.Origin)
}

func TestInTransactionRollsBack(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "50")

	boom := errors.New("boom")
	err := repo.InTransaction(ctx, func(tx *gorm.DB) error {
		if err := repo.IncrementBalance(ctx, tx, acc.ID, repository.FieldBalance, dec("25")); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	got, err := repo.GetAccount(ctx, acc.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("50")), got.Balance.String())

	assert.Panics(t, func() {
		_ = repo.InTransaction(ctx, func(tx *gorm.DB) error {
			_ = repo.IncrementBalance(ctx, tx, acc.ID, repository.FieldBalance, dec("25"))
			panic("kaboom")
		})
	})
	got, err = repo.GetAccount(ctx, acc.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("50")), got.Balance.String())
}

func TestAdvanceAccrualGuardsOnCheckpoint(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "a@example.com", "0")

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := models.NewInvestment(acc.ID, nil, dec("1000"), dec("10"), 10, start)
	require.NoError(t, repo.CreateInvestment(ctx, inv, nil))

	at := start.Add(2 * models.Day)
	require.NoError(t, repo.AdvanceAccrual(ctx, nil, inv.ID, repository.AccrualAdvance{
		FromDays: 0, ToDays: 2, Profit: dec("20"), At: at,
	}))

	err := repo.AdvanceAccrual(ctx, nil, inv.ID, repository.AccrualAdvance{
		FromDays: 0, ToDays: 2, Profit: dec("20"), At: at,
	})
	assert.True(t, errors.Is(err, repository.ErrStatusChanged))

	require.NoError(t, repo.AdvanceAccrual(ctx, nil, inv.ID, repository.AccrualAdvance{
		FromDays: 2, ToDays: 10, Profit: dec("80"), Complete: true, At: start.Add(10 * models.Day),
	}))

	got, err := repo.GetInvestment(ctx, inv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AccruedDays)
	assert.Equal(t, models.InvestmentCompleted, got.Status)
	assert.True(t, got.ProfitPaid.Equal(dec("100")), got.ProfitPaid.String())

	active, err := repo.ListActiveInvestments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListTransactionsFilters(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	a := newAccount(t, repo, "a@example.com", "0")
	b := newAccount(t, repo, "b@example.com", "0")

	for _, accID := range []uint{a.ID, a.ID, b.ID} {
		require.NoError(t, repo.CreateTransaction(ctx, &models.Transaction{
			AccountID: accID,
			Amount:    dec("5"),
			Type:      models.TransactionDeposit,
			Status:    models.StatusPending,
			Source:    models.SourcePrimary,
			Origin:    models.OriginUser,
		}, nil))
	}

	all, err := repo.ListTransactions(ctx, repository.TransactionFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.ListTransactions(ctx, repository.TransactionFilter{AccountID: &a.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	page, err := repo.ListTransactions(ctx, repository.TransactionFilter{Status: models.StatusPending, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].AccountID)

	count, err := repo.CountTransactions(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}
