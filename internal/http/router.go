package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"footballapp/internal/metrics"
	"footballapp/internal/service"
)

// RouterConfig agrupa lo que NewRouter necesita para montar las rutas.
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Auth           Authenticator
	Users          *UserHandler
	OAuth          *OAuthHandler
	Sports         *SportsHandler
	Health         *HealthHandler
	Limiters       map[string]service.RateLimiter
	Policies       map[string]service.RateLimitPolicy
	TrustedProxies []string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies", zap.Error(err))
	}
	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger), metricsMiddleware(cfg.Metrics))

	limit := func(category string) gin.HandlerFunc {
		return RateLimitMiddleware(cfg.Limiters[category], cfg.Policies[category], cfg.Metrics)
	}
	bearer := BearerAuthMiddleware(cfg.Auth, cfg.Metrics)

	users := r.Group("/api/users")
	users.POST("/register", limit(service.RateCategoryRegister), cfg.Users.Register)
	users.POST("/login", limit(service.RateCategoryLogin), cfg.Users.Login)
	users.POST("/forgot-password", limit(service.RateCategoryForgotPassword), cfg.Users.ForgotPassword)
	users.POST("/verify-email", cfg.Users.VerifyEmail)
	users.POST("/verify-reset-password", cfg.Users.VerifyResetCode)
	users.POST("/reset-password", cfg.Users.ResetPassword)
	users.POST("/refresh", cfg.Users.Refresh)
	users.POST("/logout", cfg.Users.Logout)
	if cfg.OAuth != nil {
		users.GET("/auth/google", cfg.OAuth.Begin)
		users.GET("/auth/google/callback", cfg.OAuth.Callback)
	}

	// Rutas autenticadas.
	private := users.Group("", limit(service.RateCategoryGeneral), bearer)
	private.GET("/dashboard", cfg.Users.Profile)
	private.GET("/profile", cfg.Users.Profile)
	private.POST("/updateProfile", cfg.Users.UpdateProfile)

	if cfg.Sports != nil {
		onboarding := r.Group("/api/onboarding", limit(service.RateCategoryGeneral), bearer)
		onboarding.GET("/leagues", cfg.Sports.Leagues)
		onboarding.GET("/leagues/:leagueId/teams", cfg.Sports.Teams)
		onboarding.GET("/teams/:teamId/players", cfg.Sports.Players)
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Healthz)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Not found")
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware convierte un panic en un 500 con el sobre estándar.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		abortWithError(c, http.StatusInternalServerError, "Server error")
	})
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
