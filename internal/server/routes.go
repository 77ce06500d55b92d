package server

import (
	"github.com/labstack/echo/v4"

	"example.com/expense-tracker/backend/internal/handlers"
)

type routeHandlers struct {
	auth          *handlers.AuthHandler
	budget        *handlers.BudgetHandler
	regular       *handlers.RegularHandler
	recurring     *handlers.RecurringHandler
	card          *handlers.CardHandler
	stats         *handlers.StatsHandler
	exports       *handlers.ExportHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
	ready         echo.HandlerFunc
}

type routeMiddleware struct {
	auth            echo.MiddlewareFunc
	admin           echo.MiddlewareFunc
	authRateLimiter echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", handlers.Health)
	e.GET("/ready", h.ready)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", mw.authRateLimiter)

	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.GET("/me", h.auth.Me, mw.auth)

	budget := api.Group("/budget", mw.auth)
	budget.POST("", h.budget.Create)
	budget.GET("", h.budget.Get)
	budget.PUT("/:id", h.budget.Update)
	budget.DELETE("/:id", h.budget.Delete)

	regular := api.Group("/regular", mw.auth)
	regular.POST("", h.regular.Create)
	regular.GET("", h.regular.List)
	regular.POST("/check", h.regular.Check)
	regular.PUT("/:id", h.regular.Update)
	regular.DELETE("/:id", h.regular.Delete)

	recurring := api.Group("/recurring", mw.auth)
	recurring.POST("", h.recurring.Create)
	recurring.GET("", h.recurring.List)
	recurring.POST("/:id/pay", h.recurring.Pay)
	recurring.PUT("/:id", h.recurring.Update)
	recurring.DELETE("/:id", h.recurring.Delete)

	api.GET("/card", h.card.Get, mw.auth)

	stats := api.Group("/stats", mw.auth)
	stats.GET("/overview", h.stats.Overview)
	stats.GET("/categories", h.stats.Categories)
	stats.GET("/monthly", h.stats.Monthly)

	exports := api.Group("/export", mw.auth)
	exports.GET("/regular.csv", h.exports.RegularCSV)
	exports.GET("/recurring.csv", h.exports.RecurringCSV)

	notifications := api.Group("/notifications", mw.auth)
	notifications.GET("/stream", h.notifications.Stream)

	admin := api.Group("/admin", mw.auth, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/usage", h.admin.Usage)
}
