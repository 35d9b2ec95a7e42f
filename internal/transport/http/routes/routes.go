package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/infra/config"
	"github.com/avrorin/estate-api/internal/transport/http/handlers"
	"github.com/avrorin/estate-api/internal/transport/http/middleware"
	"github.com/avrorin/estate-api/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config       *config.AppConfig
	Logger       *zap.Logger
	RateLimiter  *middleware.RateLimiter
	Metrics      *middleware.HTTPMetrics
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Health       *handlers.HealthHandler
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	if deps.Health != nil {
		r.GET("/healthz", deps.Health.Status)
		r.GET("/readyz", deps.Health.Readiness)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookies := handlers.NewCookieWriter(
		deps.Config.Cookie.Domain,
		deps.Config.App.IsProduction(),
		deps.Config.JWT.AccessTokenTTL,
		deps.Config.JWT.RefreshTokenTTL,
	)

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Registration, cookies, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.Auth, deps.Logger)

	requireAuth := middleware.RequireAuth(deps.Auth)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")

		authGroup.POST("/register", rateLimit(deps, "register",
			deps.Config.RateLimit.RegisterMaxAttempts, deps.Config.RateLimit.RegisterWindow,
			authHandler.Register)...)
		authGroup.POST("/login", rateLimit(deps, "login",
			deps.Config.RateLimit.LoginMaxAttempts, deps.Config.RateLimit.LoginWindow,
			authHandler.Login)...)
		authGroup.POST("/google", rateLimit(deps, "google",
			deps.Config.RateLimit.LoginMaxAttempts, deps.Config.RateLimit.LoginWindow,
			authHandler.LoginWithGoogle)...)
		authGroup.POST("/refresh", rateLimit(deps, "refresh",
			deps.Config.RateLimit.RefreshMaxAttempts, deps.Config.RateLimit.RefreshWindow,
			authHandler.Refresh)...)

		authGroup.POST("/logout", middleware.OptionalAuth(deps.Auth), authHandler.Logout)
		authGroup.POST("/logout-all", requireAuth, authHandler.LogoutAll)
		authGroup.GET("/me", requireAuth, authHandler.Me)
		authGroup.GET("/sessions", requireAuth, authHandler.Sessions)

		adminGroup := authGroup.Group("/admin")
		adminGroup.Use(requireAuth, middleware.RequireRole(domain.RoleAdmin))
		adminGroup.POST("/ban/:id", adminHandler.BanUser)
		adminGroup.POST("/unban/:id", adminHandler.UnbanUser)
	}

	return r
}

func rateLimit(deps Dependencies, name string, limit int, window time.Duration, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 || window <= 0 {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{
		deps.RateLimiter.Limit(middleware.RateLimitRule{Name: name, Limit: limit, Window: window}),
		handler,
	}
}
