package main

import (
	"github.com/gin-gonic/gin"
	"spark.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	authHandler           *handlers.AuthHandler
	walletHandler         *handlers.WalletHandler
	giftHandler           *handlers.GiftHandler
	adminHandler          *handlers.AdminHandler
	webhookHandler        *handlers.WebhookHandler
	authMiddleware        gin.HandlerFunc
	adminMiddleware       gin.HandlerFunc
	rateLimitMiddleware   gin.HandlerFunc
	idempotencyMiddleware gin.HandlerFunc
}

// middlewares drops the ones left unset, e.g. rate limiting when disabled
func middlewares(mws ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

func chain(h gin.HandlerFunc, mws ...gin.HandlerFunc) []gin.HandlerFunc {
	return append(middlewares(mws...), h)
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	// mutating wallet calls are throttled and deduplicated per user
	mutation := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return chain(h, d.rateLimitMiddleware, d.idempotencyMiddleware)
	}

	v1 := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", d.authHandler.Register)
			auth.POST("/login", d.authHandler.Login)
			auth.POST("/refresh", d.authHandler.RefreshToken)
			auth.GET("/me", chain(d.authHandler.GetMe, d.authMiddleware)...)
			auth.DELETE("/me", chain(d.authHandler.DeleteMe, d.authMiddleware)...)
		}

		// Wallet routes (protected)
		wallet := v1.Group("/wallet")
		wallet.Use(middlewares(d.authMiddleware)...)
		{
			wallet.GET("/balances", d.walletHandler.GetBalances)
			wallet.GET("/transactions", d.walletHandler.ListTransactions)
			wallet.POST("/transfer", mutation(d.walletHandler.Transfer)...)
			wallet.POST("/convert", mutation(d.walletHandler.Convert)...)
			wallet.POST("/recharge", mutation(d.walletHandler.Recharge)...)
			wallet.POST("/withdrawals", mutation(d.walletHandler.RequestWithdrawal)...)
		}

		// Gift routes
		gifts := v1.Group("/gifts")
		{
			gifts.GET("", d.giftHandler.ListGifts)
			gifts.POST("/send", chain(d.giftHandler.SendGift, d.authMiddleware, d.rateLimitMiddleware, d.idempotencyMiddleware)...)
		}

		// Payment gateway callbacks, authenticated by signature
		v1.POST("/webhooks/payments", d.webhookHandler.HandlePaymentWebhook)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middlewares(d.authMiddleware, d.adminMiddleware)...)
		{
			admin.GET("/transactions", d.adminHandler.ListTransactions)
			admin.POST("/wallets/credit", d.adminHandler.CreditWallet)
			admin.POST("/wallets/debit", d.adminHandler.DebitWallet)
			admin.POST("/withdrawals/:id/approve", d.adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", d.adminHandler.RejectWithdrawal)
			admin.POST("/gifts", d.giftHandler.CreateGift)
		}
	}
}
