package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	assert.NoError(t, StatusPending.Transition(StatusCompleted))
	assert.NoError(t, StatusPending.Transition(StatusRejected))

	err := StatusCompleted.Transition(StatusRejected)
	assert.True(t, errors.Is(err, ErrTerminalStatus))
	err = StatusRejected.Transition(StatusCompleted)
	assert.True(t, errors.Is(err, ErrTerminalStatus))

	err = StatusPending.Transition(StatusPending)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	err = StatusPending.Transition(TransactionStatus("settled"))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestPlanAccepts(t *testing.T) {
	plan := &InvestmentPlan{MinAmount: decimal.NewFromInt(100), MaxAmount: decimal.NewFromInt(1000)}
	assert.False(t, plan.Accepts(decimal.NewFromInt(99)))
	assert.True(t, plan.Accepts(decimal.NewFromInt(100)))
	assert.True(t, plan.Accepts(decimal.NewFromInt(1000)))
	assert.False(t, plan.Accepts(decimal.NewFromInt(1001)))

	plan.MaxAmount = decimal.Zero
	assert.True(t, plan.Accepts(decimal.NewFromInt(1_000_000)))
}

func TestInvestmentAccrualMath(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inv := NewInvestment(1, nil, decimal.NewFromInt(1000), decimal.NewFromInt(10), 10, start)

	assert.Equal(t, start.Add(10*Day), inv.EndDate)
	assert.Equal(t, "10", inv.DailyProfit().String())

	assert.Equal(t, 0, inv.DaysOwed(start.Add(23*time.Hour)))
	assert.Equal(t, 1, inv.DaysOwed(start.Add(Day)))
	assert.Equal(t, 10, inv.DaysOwed(start.Add(40*Day)))
	assert.False(t, inv.IsMature(start.Add(9*Day)))
	assert.True(t, inv.IsMature(start.Add(10*Day)))

	inv.AccruedDays = 4
	assert.Equal(t, 2, inv.DaysOwed(start.Add(6*Day)))
	assert.Equal(t, "60", inv.ProfitFor(6).Sub(inv.ProfitFor(4)).Add(inv.ProfitFor(4)).String())
}

func TestProfitForKeepsTotalExact(t *testing.T) {
	inv := NewInvestment(1, nil, decimal.NewFromInt(100), decimal.NewFromInt(10), 3, time.Now())

	var paid decimal.Decimal
	for day := 1; day <= 3; day++ {
		paid = paid.Add(inv.ProfitFor(day).Sub(inv.ProfitFor(day - 1)))
	}
	assert.Equal(t, "10", paid.String())
	assert.Equal(t, "3.33", inv.ProfitFor(1).String())
	assert.True(t, inv.ProfitFor(5).Equal(inv.ProfitFor(3)))
}
