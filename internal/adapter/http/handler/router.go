package handler

import (
	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransferSvc    ports.TransferService
	AccountSvc     ports.AccountService
	QuerySvc       ports.QueryService
	AuditSvc       ports.AuditService                  // nil = audit logging disabled
	RateLimitStore ports.RateLimitStore                // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule // nil = defaults
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	accountHandler := NewAccountHandler(deps.AccountSvc, deps.QuerySvc)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", rl(middleware.GroupAccountsCreate), accountHandler.Create)
		accounts.GET("", rl(middleware.GroupQueries), accountHandler.List)
		accounts.GET("/:id", rl(middleware.GroupQueries), accountHandler.GetByID)
		accounts.GET("/handle/:handle", rl(middleware.GroupQueries), accountHandler.GetByHandle)
	}

	txnHandler := NewTransactionHandler(deps.TransferSvc, deps.QuerySvc)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("/pay", rl(middleware.GroupPayments), txnHandler.Pay)
		transactions.GET("", rl(middleware.GroupQueries), txnHandler.List)
		transactions.GET("/stats", rl(middleware.GroupQueries), txnHandler.Stats)
		transactions.GET("/id/:id", rl(middleware.GroupQueries), txnHandler.GetByID)
		transactions.GET("/account/:handle", rl(middleware.GroupQueries), txnHandler.ListByHandle)
		transactions.GET("/:transactionId", rl(middleware.GroupQueries), txnHandler.GetByTransactionID)
	}

	return r
}
