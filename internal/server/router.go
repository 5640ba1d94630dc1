package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lockerroom/lockerroom/internal/auth"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/observability"
	"github.com/lockerroom/lockerroom/internal/repo"
	"github.com/lockerroom/lockerroom/internal/server/handlers"
	"github.com/lockerroom/lockerroom/internal/server/middlewares"
)

type Deps struct {
	Users          repo.UserStore
	JWT            *auth.Manager
	Prom           *observability.Prom
	PromReg        *prometheus.Registry
	Ping           func() error
	Tracing        bool
	AllowedOrigins []string
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))

	if deps.Tracing {
		r.Use(otelgin.Middleware("lockerroom-devserver"))
	}

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	if len(deps.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(deps.AllowedOrigins))
	}

	// health + metrics
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromReg, promhttp.HandlerOpts{})))
	}

	// identity endpoints
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT, log)
	usersHandler := handlers.NewUsersHandler(deps.Users)
	authMW := middlewares.NewAuthMiddleware(deps.JWT)

	r.POST("/api/auth/login", authHandler.Login)
	r.POST("/api/auth/signup", authHandler.SignUp)
	r.POST("/api/auth/forgot-password", authHandler.ForgotPassword)
	r.POST("/api/auth/reset-password", authHandler.ResetPassword)

	r.GET("/api/users/me", authMW.RequireAuth(), usersHandler.Me)

	// admin-only probe, mostly here so role gating is exercised end to end
	r.GET("/api/admin/ping",
		authMW.RequireAuth(),
		authMW.RequireAnyRole("system_admin", "school_admin"),
		func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) },
	)

	return r
}
