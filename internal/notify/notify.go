// Package notify delivers best-effort ledger notifications to admins and
// account owners.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Event string

const (
	EventDepositSubmitted    Event = "deposit_submitted"
	EventWithdrawalSubmitted Event = "withdrawal_submitted"
	EventTransactionApproved Event = "transaction_approved"
	EventTransactionRejected Event = "transaction_rejected"
	EventInvestmentOpened    Event = "investment_opened"
	EventInvestmentCompleted Event = "investment_completed"
	EventReferralBonus       Event = "referral_bonus"
	EventReferralTransfer    Event = "referral_transfer"
	EventAccrualFinished     Event = "accrual_finished"
)

type Fields map[string]string

type Notifier interface {
	NotifyAdmin(ctx context.Context, event Event, fields Fields) error
	NotifyUser(ctx context.Context, email string, event Event, fields Fields) error
}

var subjects = map[Event]string{
	EventDepositSubmitted:    "New deposit request",
	EventWithdrawalSubmitted: "New withdrawal request",
	EventTransactionApproved: "Transaction approved",
	EventTransactionRejected: "Transaction rejected",
	EventInvestmentOpened:    "Investment opened",
	EventInvestmentCompleted: "Investment completed",
	EventReferralBonus:       "Referral bonus credited",
	EventReferralTransfer:    "Referral earnings transferred",
	EventAccrualFinished:     "Daily accrual finished",
}

func Subject(event Event) string {
	if s, ok := subjects[event]; ok {
		return s
	}
	return string(event)
}

// Render formats fields as sorted "key: value" lines under the subject.
func Render(event Event, fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(Subject(event))
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, fields[k])
	}
	return b.String()
}

type Nop struct{}

func (Nop) NotifyAdmin(context.Context, Event, Fields) error         { return nil }
func (Nop) NotifyUser(context.Context, string, Event, Fields) error { return nil }

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyAdmin(ctx context.Context, event Event, fields Fields) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyAdmin(ctx, event, fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyUser(ctx context.Context, email string, event Event, fields Fields) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyUser(ctx, email, event, fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
