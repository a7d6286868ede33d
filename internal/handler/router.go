package handler

import (
	"corebank/internal/observability"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, metrics *observability.Metrics, mode string) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(metrics.Middleware())

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 客户相关
		customers := api.Group("/customers")
		{
			customers.POST("", h.CreateCustomer)
			customers.GET("", h.ListCustomers)
		}

		// 账户相关
		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.OpenAccount)
			accounts.GET("", h.ListAccounts)
			accounts.GET("/summary", h.Summary)
			accounts.GET("/:number", h.GetAccount)
			accounts.PUT("/:number/status", h.SetStatus)
			accounts.POST("/:number/deposit", h.Deposit)
			accounts.POST("/:number/withdraw", h.Withdraw)
			accounts.GET("/:number/transactions", h.ListTransactions)
			accounts.GET("/:number/statement", h.Statement)
		}

		// 转账
		api.POST("/transfers", h.Transfer)

		// 运维
		api.GET("/ops/persistence", h.PersistenceStatus)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
