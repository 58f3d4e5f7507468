package api

import (
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public, user and admin route groups.
func NewRouter(h *Handler, logger *utils.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(logger), gin.Recovery())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/api/register", h.Register)

	user := r.Group("/api", Authentication(h.secret))
	{
		user.GET("/account", h.GetAccount)
		user.GET("/transactions", h.ListTransactions)
		user.GET("/plans", h.ListPlans)
		user.GET("/wallets", h.ListWallets)
		user.GET("/investments", h.ListInvestments)

		user.POST("/deposits", h.SubmitDeposit)
		user.POST("/withdrawals", h.SubmitWithdrawal)
		user.POST("/investments", h.OpenInvestment)
		user.POST("/referral/transfer", h.TransferReferral)
		user.POST("/referral/withdrawals", h.WithdrawReferral)
	}

	admin := r.Group("/api/admin", Authentication(h.secret), AdminOnly())
	{
		admin.GET("/transactions/pending", h.ListPending)
		admin.POST("/transactions/:id/decision", h.Decide)

		admin.GET("/plans", h.ListAllPlans)
		admin.POST("/plans", h.CreatePlan)
		admin.PUT("/plans/:id", h.UpdatePlan)
		admin.DELETE("/plans/:id", h.DeletePlan)

		admin.GET("/wallets", h.ListAllWallets)
		admin.POST("/wallets", h.CreateWallet)
		admin.PATCH("/wallets/:id", h.SetWalletActive)

		admin.POST("/investments", h.OpenCustomInvestment)
		admin.POST("/accrual/run", h.RunAccrual)
	}

	return r
}
