// Package router wires handlers and middleware into an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/config"
	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, in which case
// rate limiting and response caching are off.
type Deps struct {
	JWTSecret    string
	Auth         *handler.AuthHandler
	Eventos      *handler.EventoHandler
	Reservas     *handler.ReservaHandler
	Estadisticas *handler.EstadisticasHandler
	Checks       map[string]handler.Check

	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// New builds the echo instance with the global middleware chain and all
// route groups.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)
	e.Use(
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Recover(d.Log),
	)

	RegisterRoutes(e, d.Checks)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d.Eventos, middleware.ResponseCache(d.Cache, d.Redis, d.Log))
	RegisterProductor(e, d.Eventos, d.Estadisticas, d.JWTSecret)
	RegisterReservas(e, d.Reservas, d.JWTSecret, middleware.RateLimit(d.RateLimit, d.Redis, d.Log))
	RegisterAdminReservas(e, d.Reservas, d.JWTSecret)
	return e
}

// RegisterRoutes registers the probes.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks))
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout works with either a refresh token or a bearer, so no JWT guard
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated event reads.  Only the
// listing goes through the response cache; availability is always
// computed live.
func RegisterPublic(e *echo.Echo, h *handler.EventoHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/eventos", h.ListEventos, cache)
	e.GET("/v1/eventos/:id", h.GetEvento)
	e.GET("/v1/eventos/:id/cupos", h.GetCupos)
}
