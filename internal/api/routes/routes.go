// Package routes wires the HTTP surface onto a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimrid/Corre/internal/api/handlers"
	"github.com/nimrid/Corre/internal/api/middleware"
	"github.com/nimrid/Corre/internal/infrastructure/config"
	"github.com/nimrid/Corre/pkg/logger"
)

// Setup registers middleware and every route group.
func Setup(router *gin.Engine, h *handlers.Handlers, cfg *config.Config, log *logger.Logger) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Metrics())

	router.GET("/health/live", h.Liveness)
	router.GET("/health/ready", h.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		balances := v1.Group("/balances")
		{
			balances.GET("", h.GetBalances)
			balances.POST("/refresh", h.RefreshBalances)
		}

		pools := v1.Group("/pools")
		{
			pools.GET("", h.GetPools)
			pools.POST("/deposit", h.DepositToPool)
			pools.POST("/withdraw", h.WithdrawFromPool)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("/wallet", h.TransferToWallet)
			transfers.POST("/bank", h.TransferToBank)
		}

		v1.POST("/swaps", h.Swap)

		operations := v1.Group("/operations")
		{
			operations.GET("/:id", h.GetOperation)
			operations.POST("/cancel", h.CancelOperation)
		}

		offramp := v1.Group("/offramp")
		{
			offramp.POST("/session", h.StartOfframpSession)
			offramp.POST("/session/verify", h.VerifyOfframpSession)
			offramp.GET("/session", h.GetOfframpSession)
			offramp.GET("/banks", h.ListBanks)
			offramp.GET("/accounts", h.ListBankAccounts)
			offramp.POST("/accounts", h.AddBankAccount)
			offramp.GET("/accounts/resolve", h.ResolveBankAccount)
			offramp.GET("/rate/:amount", h.GetRate)
		}

		clients := v1.Group("/clients")
		{
			clients.GET("", h.ListClients)
			clients.POST("", h.CreateClient)
			clients.PUT("/:id", h.UpdateClient)
			clients.DELETE("/:id", h.DeleteClient)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.GET("", h.ListInvoices)
			invoices.POST("", h.CreateInvoice)
			invoices.PUT("/:id/status", h.SetInvoiceStatus)
		}

		beneficiaries := v1.Group("/beneficiaries")
		{
			beneficiaries.GET("", h.ListBeneficiaries)
			beneficiaries.POST("", h.AddBeneficiary)
			beneficiaries.DELETE("/:id", h.DeleteBeneficiary)
		}
	}
}
