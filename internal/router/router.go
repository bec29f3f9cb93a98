package router

import (
	"fmt"
	"strings"

	"github.com/reflink-next/internal/cache"
	"github.com/reflink-next/internal/config"
	adminhandlers "github.com/reflink-next/internal/http/handlers/admin"
	publichandlers "github.com/reflink-next/internal/http/handlers/public"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rl"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	signupRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:signup", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 推广落地入口与注册
		apiV1.GET("/r/:code", publicHandler.HandleReferralEntry)
		apiV1.POST("/signup", RateLimitMiddleware(redisClient, signupRule, KeyByIPAndJSONField("email")), publicHandler.HandleSignup)

		// 推广用户自助查询
		affiliates := apiV1.Group("/affiliates")
		{
			affiliates.GET("/:code/dashboard", publicHandler.HandleAffiliateDashboard)
			affiliates.GET("/:code/commissions", publicHandler.HandleAffiliateCommissions)
			affiliates.GET("/:code/wallet/transactions", publicHandler.HandleAffiliateWalletTransactions)
		}

		// 商城平台 webhook（验签在 handler 内完成）
		webhooks := apiV1.Group("/webhooks/shopify")
		{
			webhooks.POST("/orders-create", publicHandler.HandleShopifyOrderCreate)
			webhooks.POST("/orders-fulfilled", publicHandler.HandleShopifyOrderFulfilled)
			webhooks.POST("/orders-cancelled", publicHandler.HandleShopifyOrderCancelled)
		}

		// 管理端
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/affiliates", adminHandler.GetAdminAffiliates)
				authorized.GET("/affiliates/:id", adminHandler.GetAdminAffiliate)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAdminAffiliateStatus)
				authorized.PUT("/affiliates/:id/override", adminHandler.UpdateAdminAffiliateOverride)

				authorized.GET("/commissions", adminHandler.GetAdminCommissions)

				authorized.GET("/wallets/:affiliate_id", adminHandler.GetAdminWallet)
				authorized.GET("/wallet-transactions", adminHandler.GetAdminWalletTransactions)
				authorized.POST("/wallets/:affiliate_id/withdraw", adminHandler.CreateAdminWalletWithdraw)
				authorized.POST("/wallets/reconcile", adminHandler.TriggerAdminWalletReconcile)
			}
		}
	}

	return r
}
