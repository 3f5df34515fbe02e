package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/ytakahashi/todo-app/internal/auth"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/todos"
)

const msgTooManyRegistrations = "Too many registration attempts. Please try again later."

type ServerConfig struct {
	Development       bool
	AllowedOrigins    []string
	RegisterRateLimit int // attempts per minute per client IP
}

// NewServer wires the REST API (and the LINE webhook when webhook is non-nil)
// into a ready-to-start Echo instance.
func NewServer(cfg ServerConfig, logger logging.Logger, authService *auth.Service, todoService *todos.Service, webhook *WebhookHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = newErrorHandler(cfg.Development, logger)

	if cfg.Development {
		e.Use(requestLogger(logger))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	authHandler := NewAuthHandler(authService)
	todoHandler := NewTodoHandler(todoService)
	requireAuth := RequireAuth(authService)

	api := e.Group("/api")
	api.POST("/auth/register", authHandler.Register, registerLimiter(cfg.RegisterRateLimit))
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authHandler.Me, requireAuth)
	api.POST("/auth/line/link", authHandler.LinkCode, requireAuth)

	api.GET("/todos", todoHandler.List, requireAuth)
	api.POST("/todos", todoHandler.Create, requireAuth)
	api.POST("/todos/:id/completed", todoHandler.Complete, requireAuth)
	api.DELETE("/todos/:id", todoHandler.Remove, requireAuth)

	if webhook != nil {
		e.POST("/webhook", webhook.HandleWebhook)
	}

	return e
}

// registerLimiter is a best-effort per-IP counter. It lives in process memory
// and resets on restart.
func registerLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(time.Minute / time.Duration(perMinute)),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, msgBody(msgTooManyRegistrations))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, msgBody("Unable to identify client"))
		},
	})
}

func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	})
}
