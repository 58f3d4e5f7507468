package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/internal/repository/repotest"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const btcAddress = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

type sentNotice struct {
	to     string
	event  notify.Event
	fields notify.Fields
}

type recorder struct {
	mu   sync.Mutex
	sent []sentNotice
	err  error
}

func (r *recorder) NotifyAdmin(_ context.Context, event notify.Event, fields notify.Fields) error {
	return r.add("admin", event, fields)
}

func (r *recorder) NotifyUser(_ context.Context, email string, event notify.Event, fields notify.Fields) error {
	return r.add(email, event, fields)
}

func (r *recorder) add(to string, event notify.Event, fields notify.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotice{to: to, event: event, fields: fields})
	return r.err
}

func (r *recorder) events(to string) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, n := range r.sent {
		if n.to == to {
			out = append(out, n.event)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	repo  *repository.Repository
	notes *recorder
	clock *fakeClock
}

func testLimits() config.Limits {
	return config.Limits{
		MinPrimaryWithdrawal:  decimal.NewFromInt(100),
		MinReferralWithdrawal: decimal.NewFromInt(10),
		MinReferralTransfer:   decimal.NewFromInt(10),
		ReferralBonusPercent:  decimal.NewFromInt(1),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := repository.NewRepository(repotest.NewDB(t), utils.DiscardLogger())
	notes := &recorder{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, notes, utils.DiscardLogger(), Options{
		Limits: testLimits(),
		Now:    clock.Now,
	})
	t.Cleanup(svc.Drain)

	return &fixture{svc: svc, repo: repo, notes: notes, clock: clock}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Round(8).Equal(dec(want)), "want %s, got %s", want, got)
}

func (f *fixture) register(t *testing.T, email, code string) *models.Account {
	t.Helper()
	acc, err := f.svc.Register(context.Background(), email, code)
	require.NoError(t, err)
	return acc
}

// fund credits amount through the deposit approval path.
func (f *fixture) fund(t *testing.T, accountID uint, amount string) {
	t.Helper()
	ctx := context.Background()
	dep, err := f.svc.SubmitDeposit(ctx, DepositRequest{AccountID: accountID, Amount: dec(amount)})
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, dep.ID, models.StatusCompleted)
	require.NoError(t, err)
}

func (f *fixture) account(t *testing.T, id uint) *models.Account {
	t.Helper()
	acc, err := f.svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func (f *fixture) plan(t *testing.T, roi string, days int, min, max string) *models.InvestmentPlan {
	t.Helper()
	plan, err := f.svc.CreatePlan(context.Background(), PlanInput{
		Name:         "Plan",
		ROI:          dec(roi),
		DurationDays: days,
		MinAmount:    dec(min),
		MaxAmount:    dec(max),
		IsActive:     true,
	})
	require.NoError(t, err)
	return plan
}

func TestLedgerErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := storageErr("Decide", cause)

	assert.True(t, errors.Is(err, ErrTransientStorage))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "transient", Kind(err))
	assert.Contains(t, err.Error(), "Decide")

	v := validationErr("SubmitDeposit", "amount must be positive")
	assert.Same(t, v, storageErr("outer", v))
	assert.Equal(t, "validation", Kind(v))
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "internal", Kind(errors.New("x")))

	nf := storageErr("op", repository.ErrAccountNotFound)
	assert.True(t, errors.Is(nf, ErrNotFound))
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notes.err = errors.New("smtp down")
	acc := f.register(t, "user@example.com", "")

	f.fund(t, acc.ID, "50")
	f.svc.Drain()

	assertMoney(t, "50", f.account(t, acc.ID).Balance)
	assert.Contains(t, f.notes.events("admin"), notify.EventTransactionApproved)
}
