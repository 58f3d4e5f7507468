package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInvestmentSnapshotsPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")
	f.fund(t, acc.ID, "1500")
	plan := f.plan(t, "10", 10, "100", "5000")

	inv, err := f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("1000"))
	require.NoError(t, err)
	assert.Equal(t, models.InvestmentActive, inv.Status)
	assert.Equal(t, 10, inv.DurationDays)
	assert.Equal(t, f.clock.Now().Add(10*models.Day), inv.EndDate)
	assertMoney(t, "500", f.account(t, acc.ID).Balance)

	_, err = f.svc.UpdatePlan(ctx, plan.ID, PlanInput{
		Name: "Plan", ROI: dec("50"), DurationDays: 3, MinAmount: dec("0"), MaxAmount: dec("0"), IsActive: true,
	})
	require.NoError(t, err)

	stored, err := f.repo.GetInvestment(ctx, inv.ID, nil)
	require.NoError(t, err)
	assertMoney(t, "10", stored.ROI)
	assert.Equal(t, 10, stored.DurationDays)
}

func TestOpenInvestmentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")
	f.fund(t, acc.ID, "150")
	plan := f.plan(t, "10", 10, "100", "1000")

	_, err := f.svc.OpenInvestment(ctx, acc.ID, 999, dec("100"))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("99"))
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("1001"))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("200"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds), "got %v", err)

	_, err = f.svc.UpdatePlan(ctx, plan.ID, PlanInput{
		Name: "Plan", ROI: dec("10"), DurationDays: 10, MinAmount: dec("100"), MaxAmount: dec("1000"), IsActive: false,
	})
	require.NoError(t, err)
	_, err = f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("120"))
	assert.True(t, errors.Is(err, ErrValidation))

	invs, err := f.svc.ListInvestments(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, invs)
	assertMoney(t, "150", f.account(t, acc.ID).Balance)
}

func TestConcurrentInvestmentFunding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")
	f.fund(t, acc.ID, "100")
	plan := f.plan(t, "10", 10, "0", "0")

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		opened       int
		insufficient int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.OpenInvestment(ctx, acc.ID, plan.ID, dec("60"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, insufficient)
	assertMoney(t, "40", f.account(t, acc.ID).Balance)

	invs, err := f.svc.ListInvestments(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
}

func TestOpenCustomInvestment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.register(t, "user@example.com", "")
	f.fund(t, acc.ID, "300")

	_, err := f.svc.OpenCustomInvestment(ctx, acc.ID, dec("100"), dec("0"), 5)
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.svc.OpenCustomInvestment(ctx, acc.ID, dec("100"), dec("5"), 0)
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.svc.OpenCustomInvestment(ctx, 999, dec("100"), dec("5"), 5)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	inv, err := f.svc.OpenCustomInvestment(ctx, acc.ID, dec("250"), dec("12.5"), 30)
	require.NoError(t, err)
	assert.Nil(t, inv.PlanID)
	assertMoney(t, "50", f.account(t, acc.ID).Balance)
}
