package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

// Ledger is the slice of the service the HTTP surface drives.
type Ledger interface {
	Register(ctx context.Context, email, referralCode string) (*models.Account, error)
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	ListAccountTransactions(ctx context.Context, accountID uint, limit, offset int) ([]*models.Transaction, error)

	SubmitDeposit(ctx context.Context, req service.DepositRequest) (*models.Transaction, error)
	SubmitWithdrawal(ctx context.Context, req service.WithdrawalRequest) (*models.Transaction, error)
	Decide(ctx context.Context, transactionID uint, decision models.TransactionStatus) (*models.Transaction, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error)

	OpenInvestment(ctx context.Context, accountID, planID uint, amount decimal.Decimal) (*models.Investment, error)
	OpenCustomInvestment(ctx context.Context, accountID uint, amount, roi decimal.Decimal, durationDays int) (*models.Investment, error)
	ListInvestments(ctx context.Context, accountID uint) ([]*models.Investment, error)

	TransferReferralEarnings(ctx context.Context, accountID uint, amount decimal.Decimal) (*models.Transaction, error)
	RequestReferralWithdrawal(ctx context.Context, accountID uint, amount decimal.Decimal, destination, idempotencyKey string) (*models.Transaction, error)

	CreatePlan(ctx context.Context, in service.PlanInput) (*models.InvestmentPlan, error)
	UpdatePlan(ctx context.Context, id uint, in service.PlanInput) (*models.InvestmentPlan, error)
	DeletePlan(ctx context.Context, id uint) error
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error)

	CreateWallet(ctx context.Context, in service.WalletInput) (*models.DepositWallet, error)
	SetWalletActive(ctx context.Context, id uint, active bool) (*models.DepositWallet, error)
	ListWallets(ctx context.Context, activeOnly bool) ([]*models.DepositWallet, error)
}

type AccrualRunner interface {
	RunOnce(ctx context.Context) (service.AccrualReport, bool, error)
}

type Handler struct {
	ledger   Ledger
	accrual  AccrualRunner
	secret   string
	tokenTTL time.Duration
	logger   *utils.Logger
}

func NewHandler(ledger Ledger, accrual AccrualRunner, secret string, tokenTTL time.Duration, logger *utils.Logger) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Handler{
		ledger:   ledger,
		accrual:  accrual,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type registerBody struct {
	Email        string `json:"email" binding:"required,email"`
	ReferralCode string `json:"referral_code"`
}

type depositBody struct {
	Amount    decimal.Decimal `json:"amount"`
	ProofHash string          `json:"proof_hash"`
	WalletID  *uint           `json:"wallet_id"`
}

type withdrawalBody struct {
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address" binding:"required"`
	Asset              string          `json:"asset"`
	Source             models.Source   `json:"source"`
}

type investmentBody struct {
	PlanID uint            `json:"plan_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type customInvestmentBody struct {
	AccountID    uint            `json:"account_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	ROI          decimal.Decimal `json:"roi"`
	DurationDays int             `json:"duration_days"`
}

type transferBody struct {
	Amount decimal.Decimal `json:"amount"`
}

type referralWithdrawalBody struct {
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address" binding:"required"`
}

type decisionBody struct {
	Decision models.TransactionStatus `json:"decision" binding:"required"`
}

type planBody struct {
	Name         string          `json:"name"`
	ROI          decimal.Decimal `json:"roi"`
	DurationDays int             `json:"duration_days"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	IsActive     *bool           `json:"is_active"`
}

func (b planBody) input() service.PlanInput {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	return service.PlanInput{
		Name:         b.Name,
		ROI:          b.ROI,
		DurationDays: b.DurationDays,
		MinAmount:    b.MinAmount,
		MaxAmount:    b.MaxAmount,
		IsActive:     active,
	}
}

type walletBody struct {
	Name     string `json:"name"`
	Address  string `json:"address" binding:"required"`
	Asset    string `json:"asset"`
	Network  string `json:"network"`
	IsActive *bool  `json:"is_active"`
}

type walletStateBody struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// bind decodes the JSON body and answers 400 itself on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abort(c, http.StatusBadRequest, codeInvalidRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Register(c *gin.Context) {
	var body registerBody
	if !bind(c, &body) {
		return
	}

	acc, err := h.ledger.Register(c.Request.Context(), body.Email, body.ReferralCode)
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := IssueToken(h.secret, acc.ID, acc.Role, h.tokenTTL)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": acc, "token": token})
}

func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.ledger.GetAccount(c.Request.Context(), accountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	limit, offset := page(c)
	txs, err := h.ledger.ListAccountTransactions(c.Request.Context(), accountID(c), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": txs})
}

func (h *Handler) SubmitDeposit(c *gin.Context) {
	var body depositBody
	if !bind(c, &body) {
		return
	}

	t, err := h.ledger.SubmitDeposit(c.Request.Context(), service.DepositRequest{
		AccountID:      accountID(c),
		Amount:         body.Amount,
		ProofHash:      body.ProofHash,
		WalletID:       body.WalletID,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) SubmitWithdrawal(c *gin.Context) {
	var body withdrawalBody
	if !bind(c, &body) {
		return
	}

	t, err := h.ledger.SubmitWithdrawal(c.Request.Context(), service.WithdrawalRequest{
		AccountID:          accountID(c),
		Amount:             body.Amount,
		DestinationAddress: body.DestinationAddress,
		Asset:              body.Asset,
		Source:             body.Source,
		IdempotencyKey:     c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) OpenInvestment(c *gin.Context) {
	var body investmentBody
	if !bind(c, &body) {
		return
	}

	inv, err := h.ledger.OpenInvestment(c.Request.Context(), accountID(c), body.PlanID, body.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvestments(c *gin.Context) {
	invs, err := h.ledger.ListInvestments(c.Request.Context(), accountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": invs})
}

func (h *Handler) TransferReferral(c *gin.Context) {
	var body transferBody
	if !bind(c, &body) {
		return
	}

	t, err := h.ledger.TransferReferralEarnings(c.Request.Context(), accountID(c), body.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) WithdrawReferral(c *gin.Context) {
	var body referralWithdrawalBody
	if !bind(c, &body) {
		return
	}

	t, err := h.ledger.RequestReferralWithdrawal(c.Request.Context(), accountID(c), body.Amount, body.DestinationAddress, c.GetHeader(idempotencyHeader))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListPlans(c *gin.Context) {
	h.listPlans(c, true)
}

func (h *Handler) ListAllPlans(c *gin.Context) {
	h.listPlans(c, false)
}

func (h *Handler) listPlans(c *gin.Context, activeOnly bool) {
	plans, err := h.ledger.ListPlans(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": plans})
}

func (h *Handler) ListWallets(c *gin.Context) {
	h.listWallets(c, true)
}

func (h *Handler) ListAllWallets(c *gin.Context) {
	h.listWallets(c, false)
}

func (h *Handler) listWallets(c *gin.Context, activeOnly bool) {
	wallets, err := h.ledger.ListWallets(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": wallets})
}

// Admin handlers.

func (h *Handler) ListPending(c *gin.Context) {
	limit, offset := page(c)
	txs, total, err := h.ledger.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": txs, "total": total})
}

func (h *Handler) Decide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body decisionBody
	if !bind(c, &body) {
		return
	}

	t, err := h.ledger.Decide(c.Request.Context(), id, body.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) OpenCustomInvestment(c *gin.Context) {
	var body customInvestmentBody
	if !bind(c, &body) {
		return
	}

	inv, err := h.ledger.OpenCustomInvestment(c.Request.Context(), body.AccountID, body.Amount, body.ROI, body.DurationDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var body planBody
	if !bind(c, &body) {
		return
	}

	plan, err := h.ledger.CreatePlan(c.Request.Context(), body.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body planBody
	if !bind(c, &body) {
		return
	}

	plan, err := h.ledger.UpdatePlan(c.Request.Context(), id, body.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeletePlan(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateWallet(c *gin.Context) {
	var body walletBody
	if !bind(c, &body) {
		return
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	wallet, err := h.ledger.CreateWallet(c.Request.Context(), service.WalletInput{
		Name:     body.Name,
		Address:  body.Address,
		Asset:    body.Asset,
		Network:  body.Network,
		IsActive: active,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

func (h *Handler) SetWalletActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body walletStateBody
	if !bind(c, &body) {
		return
	}

	wallet, err := h.ledger.SetWalletActive(c.Request.Context(), id, *body.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *Handler) RunAccrual(c *gin.Context) {
	report, ran, err := h.accrual.RunOnce(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ran {
		abort(c, http.StatusConflict, codeConflict, "accrual run already in progress")
		return
	}
	c.JSON(http.StatusOK, report)
}
