package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const Day = 24 * time.Hour

var hundred = decimal.NewFromInt(100)

type Investment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AccountID    uint             `gorm:"index;not null" json:"account_id"`
	PlanID       *uint            `gorm:"index" json:"plan_id,omitempty"`
	Amount       decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"amount"`
	ROI          decimal.Decimal  `gorm:"type:numeric(10,4);not null" json:"roi"`
	DurationDays int              `gorm:"not null" json:"duration_days"`
	StartDate    time.Time        `gorm:"not null" json:"start_date"`
	EndDate      time.Time        `gorm:"not null" json:"end_date"`
	Status       InvestmentStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	AccruedDays   int             `gorm:"not null;default:0" json:"accrued_days"`
	LastAccrualAt *time.Time      `json:"last_accrual_at,omitempty"`
	ProfitPaid    decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"profit_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInvestment snapshots roi and duration so later plan edits never touch it.
func NewInvestment(accountID uint, planID *uint, amount, roi decimal.Decimal, durationDays int, now time.Time) *Investment {
	start := now.UTC()
	return &Investment{
		AccountID:    accountID,
		PlanID:       planID,
		Amount:       amount,
		ROI:          roi,
		DurationDays: durationDays,
		StartDate:    start,
		EndDate:      start.Add(time.Duration(durationDays) * Day),
		Status:       InvestmentActive,
		ProfitPaid:   decimal.Zero,
	}
}

// DailyProfit is amount * roi/100 / durationDays, unrounded.
func (i *Investment) DailyProfit() decimal.Decimal {
	if i.DurationDays <= 0 {
		return decimal.Zero
	}
	return i.Amount.Mul(i.ROI).Div(hundred).Div(decimal.NewFromInt(int64(i.DurationDays)))
}

// ProfitFor is the cumulative profit owed after days full days, rounded to
// cents. Paying ProfitFor(n) - ProfitFor(m) keeps the lifetime total exact.
func (i *Investment) ProfitFor(days int) decimal.Decimal {
	if days <= 0 || i.DurationDays <= 0 {
		return decimal.Zero
	}
	if days > i.DurationDays {
		days = i.DurationDays
	}
	return i.Amount.Mul(i.ROI).Div(hundred).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(int64(i.DurationDays))).
		Round(2)
}

// ElapsedDays counts full days between StartDate and min(now, EndDate).
func (i *Investment) ElapsedDays(now time.Time) int {
	until := now
	if until.After(i.EndDate) {
		until = i.EndDate
	}
	if !until.After(i.StartDate) {
		return 0
	}
	days := int(until.Sub(i.StartDate) / Day)
	if days > i.DurationDays {
		days = i.DurationDays
	}
	return days
}

// DaysOwed is the number of elapsed days not yet credited.
func (i *Investment) DaysOwed(now time.Time) int {
	owed := i.ElapsedDays(now) - i.AccruedDays
	if owed < 0 {
		return 0
	}
	return owed
}

func (i *Investment) IsMature(now time.Time) bool {
	return !now.Before(i.EndDate)
}
