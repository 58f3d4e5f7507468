package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Register(ctx, "  Alice@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, models.RoleUser, a.Role)
	assert.Len(t, a.ReferralCode, referralCodeLen)
	assert.Nil(t, a.ReferredByID)
	assertMoney(t, "0", a.Balance)

	_, err = f.svc.Register(ctx, "alice@example.com", "")
	assert.True(t, errors.Is(err, ErrConflict))
	_, err = f.svc.Register(ctx, "nobody", "")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.svc.Register(ctx, "bob@example.com", "NOPE")
	assert.True(t, errors.Is(err, ErrValidation))

	b, err := f.svc.Register(ctx, "bob@example.com", a.ReferralCode)
	require.NoError(t, err)
	require.NotNil(t, b.ReferredByID)
	assert.Equal(t, a.ID, *b.ReferredByID)
	assert.NotEqual(t, a.ReferralCode, b.ReferralCode)

	_, err = f.svc.GetAccount(ctx, 12345)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlanCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []PlanInput{
		{Name: "", ROI: dec("5"), DurationDays: 5},
		{Name: "x", ROI: dec("0"), DurationDays: 5},
		{Name: "x", ROI: dec("5"), DurationDays: 0},
		{Name: "x", ROI: dec("5"), DurationDays: 5, MinAmount: dec("-1")},
		{Name: "x", ROI: dec("5"), DurationDays: 5, MinAmount: dec("100"), MaxAmount: dec("50")},
	}
	for _, in := range bad {
		_, err := f.svc.CreatePlan(ctx, in)
		assert.True(t, errors.Is(err, ErrValidation), "%+v", in)
	}

	active := f.plan(t, "8", 30, "50", "0")
	_, err := f.svc.CreatePlan(ctx, PlanInput{Name: "Hidden", ROI: dec("3"), DurationDays: 7, IsActive: false})
	require.NoError(t, err)

	plans, err := f.svc.ListPlans(ctx, true)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, active.ID, plans[0].ID)

	all, err := f.svc.ListPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.UpdatePlan(ctx, 999, PlanInput{Name: "x", ROI: dec("1"), DurationDays: 1})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, f.svc.DeletePlan(ctx, active.ID))
	assert.True(t, errors.Is(f.svc.DeletePlan(ctx, active.ID), ErrNotFound))
}

func TestWalletCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateWallet(ctx, WalletInput{Name: "Main", Address: "garbage", Asset: "BTC"})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.svc.CreateWallet(ctx, WalletInput{Name: "Main", Address: "garbage"})
	assert.True(t, errors.Is(err, ErrValidation), "empty asset is checked as BTC")
	_, err = f.svc.CreateWallet(ctx, WalletInput{Address: btcAddress})
	assert.True(t, errors.Is(err, ErrValidation))

	cold, err := f.svc.CreateWallet(ctx, WalletInput{Name: "Cold", Address: btcAddress})
	require.NoError(t, err)
	assert.Equal(t, "BTC", cold.Asset)
	assert.False(t, cold.IsActive)

	btc, err := f.svc.CreateWallet(ctx, WalletInput{Name: "Main", Address: btcAddress, Asset: "BTC", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "mainnet", btc.Network)

	usdt, err := f.svc.CreateWallet(ctx, WalletInput{Name: "Tether", Address: "TXYZ", Asset: "usdt", Network: "TRC20"})
	require.NoError(t, err)
	assert.Equal(t, "USDT", usdt.Asset)

	wallets, err := f.svc.ListWallets(ctx, true)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)

	_, err = f.svc.SetWalletActive(ctx, usdt.ID, true)
	require.NoError(t, err)
	_, err = f.svc.SetWalletActive(ctx, btc.ID, false)
	require.NoError(t, err)

	wallets, err = f.svc.ListWallets(ctx, true)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, usdt.ID, wallets[0].ID)

	_, err = f.svc.SetWalletActive(ctx, 999, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListAccountTransactionsCapsPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")

	for i := 0; i < maxPageSize+5; i++ {
		_, err := f.svc.SubmitDeposit(ctx, DepositRequest{AccountID: acc.ID, Amount: dec("1")})
		require.NoError(t, err)
	}

	for _, limit := range []int{0, -1, maxPageSize + 50} {
		txs, err := f.svc.ListAccountTransactions(ctx, acc.ID, limit, -3)
		require.NoError(t, err)
		assert.Len(t, txs, maxPageSize, "limit %d", limit)
	}

	txs, err := f.svc.ListAccountTransactions(ctx, acc.ID, 10, maxPageSize)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
}

func TestListPendingPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")

	var ids []uint
	for i := 0; i < 5; i++ {
		dep, err := f.svc.SubmitDeposit(ctx, DepositRequest{AccountID: acc.ID, Amount: dec("10")})
		require.NoError(t, err)
		ids = append(ids, dep.ID)
	}
	_, err := f.svc.Decide(ctx, ids[0], models.StatusRejected)
	require.NoError(t, err)

	page, total, err := f.svc.ListPending(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)

	page, _, err = f.svc.ListPending(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[1].ID)
}
