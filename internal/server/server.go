package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/config"
	"example.com/expense-tracker/backend/internal/handlers"
	"example.com/expense-tracker/backend/internal/notifications"
	"example.com/expense-tracker/backend/internal/repository"
	"example.com/expense-tracker/backend/internal/tracker"
)

// NewTracker собирает сервис учета расходов поверх репозиториев Postgres.
func NewTracker(cfg config.LedgerConfig, logger *slog.Logger, db *pgxpool.Pool, publisher notifications.Publisher) *tracker.Service {
	lookaheadDays := cfg.LookaheadDays
	return tracker.NewService(
		repository.NewBudgetRepository(db),
		repository.NewRegularExpenseRepository(db),
		repository.NewRecurringExpenseRepository(db),
		repository.NewCardRepository(db),
		tracker.Options{
			Publisher:     publisher,
			Logger:        logger,
			Location:      cfg.Location,
			LookaheadDays: &lookaheadDays,
		},
	)
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, service *tracker.Service, hub *notifications.Hub) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		e.Use(corsMiddleware(cfg.CORS))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	sessions := auth.NewSessions(repository.NewUserRepository(db), repository.NewRefreshTokenRepository(db), tokenManager, logger)
	statsRepo := repository.NewStatsRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	registerRoutes(e, routeHandlers{
		auth:          handlers.NewAuthHandler(sessions, cfg.Env == "production"),
		budget:        handlers.NewBudgetHandler(service),
		regular:       handlers.NewRegularHandler(service),
		recurring:     handlers.NewRecurringHandler(service),
		card:          handlers.NewCardHandler(service),
		stats:         handlers.NewStatsHandler(statsRepo, service),
		exports:       handlers.NewExportHandler(service),
		notifications: handlers.NewNotificationHandler(hub),
		admin:         handlers.NewAdminHandler(adminRepo),
		ready:         handlers.Ready(db),
	}, routeMiddleware{
		auth:            auth.JWTMiddleware(tokenManager),
		admin:           handlers.AdminMiddleware(sessions, cfg.Admin.Emails),
		authRateLimiter: authRateLimiter(cfg.Auth),
	})

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}

func corsMiddleware(cfg config.CORSConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
}
