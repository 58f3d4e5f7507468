package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionProfit     TransactionType = "profit"
)

// Source selects the balance a transaction draws from or credits.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceReferral Source = "referral"
)

type Origin string

const (
	OriginUser             Origin = "user"
	OriginAccrual          Origin = "accrual"
	OriginReferralBonus    Origin = "referral_bonus"
	OriginReferralTransfer Origin = "referral_transfer"
)

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

type Account struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Role         Role   `gorm:"type:varchar(16);not null;default:user" json:"role"`
	TelegramID   *int64 `gorm:"index" json:"telegram_id,omitempty"`
	ReferralCode string `gorm:"uniqueIndex;not null" json:"referral_code"`

	Balance          decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"balance"`
	ReferralEarnings decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"referral_earnings"`

	ReferredByID *uint    `gorm:"index" json:"referred_by_id,omitempty"`
	ReferredBy   *Account `gorm:"foreignKey:ReferredByID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Transaction struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	AccountID uint              `gorm:"index;not null" json:"account_id"`
	Amount    decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"amount"`
	Type      TransactionType   `gorm:"type:varchar(16);index;not null" json:"type"`
	Status    TransactionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Source    Source            `gorm:"type:varchar(16);not null;default:primary" json:"source"`
	Origin    Origin            `gorm:"type:varchar(24);not null;default:user" json:"origin"`

	// Unique when set: client keys, referral:<txid>, accrual:<investment>:<day>.
	IdempotencyKey *string `gorm:"type:varchar(191);uniqueIndex" json:"-"`

	ProofHash          string `json:"proof_hash,omitempty"`
	WalletID           *uint  `gorm:"index" json:"wallet_id,omitempty"`
	Asset              string `gorm:"type:varchar(16)" json:"asset,omitempty"`
	DestinationAddress string `json:"destination_address,omitempty"`
	Description        string `json:"description,omitempty"`

	RelatedTransactionID *uint `gorm:"index" json:"related_transaction_id,omitempty"`
	InvestmentID         *uint `gorm:"index" json:"investment_id,omitempty"`

	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type InvestmentPlan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	ROI          decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"roi"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	MinAmount    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"min_amount"`
	MaxAmount    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"max_amount"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Accepts checks amount against the plan bounds; a zero MaxAmount is unbounded.
func (p *InvestmentPlan) Accepts(amount decimal.Decimal) bool {
	if amount.LessThan(p.MinAmount) {
		return false
	}
	if p.MaxAmount.IsPositive() && amount.GreaterThan(p.MaxAmount) {
		return false
	}
	return true
}

type DepositWallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `gorm:"not null" json:"address"`
	Asset     string    `gorm:"type:varchar(16);not null" json:"asset"`
	Network   string    `gorm:"type:varchar(32)" json:"network"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
