package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"footballapp/internal/config"
	"footballapp/internal/db"
	"footballapp/internal/email"
	apihttp "footballapp/internal/http"
	"footballapp/internal/metrics"
	"footballapp/internal/oauth"
	"footballapp/internal/repository"
	"footballapp/internal/service"
	"footballapp/internal/sportsdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	gin.SetMode(gin.ReleaseMode)

	userRepo, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	m := metrics.New()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory fallbacks", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	policies := rateLimitPolicies(cfg)
	limiters := make(map[string]service.RateLimiter, len(policies))
	for category, p := range policies {
		if redisClient != nil {
			limiters[category] = service.NewRedisRateLimiter(redisClient, category, p.Window, p.Limit, logger)
		} else {
			limiters[category] = service.NewMemoryRateLimiter(p.Window, p.Limit)
		}
	}

	tokenStore := service.NewMemoryRefreshTokenStore()
	if redisClient != nil {
		tokenStore = service.NewRedisRefreshTokenStore(redisClient)
	}
	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL(), tokenStore)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	mailer := email.NewDispatcher(emailSender, logger, cfg.MailWorkers, cfg.MailQueue, m)
	defer mailer.Close()

	userSvc := service.NewUserService(logger, userRepo, service.NewPasswordHasher(), jwtSvc, mailer)

	var googleProvider oauth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleProvider = oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		logger.Warn("google oauth not configured")
	}

	var sportsCache sportsdata.Cache
	if redisClient != nil {
		sportsCache = sportsdata.NewRedisCache(redisClient, logger)
	}
	sportsClient := sportsdata.NewClient(sportsdata.Config{
		BaseURLV3: cfg.SportsAPIBaseURLV3,
		BaseURLV2: cfg.SportsAPIBaseURLV2,
		APIKey:    cfg.SportsAPIKey,
		APIHost:   cfg.SportsAPIHost,
		Season:    cfg.SportsSeason,
		CacheTTL:  cfg.SportsCacheDuration(),
	}, sportsCache, logger)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Logger:         logger,
		Metrics:        m,
		Auth:           userSvc,
		Users:          apihttp.NewUserHandler(logger, userSvc, m, cfg.ExposeErrorDetails),
		OAuth:          apihttp.NewOAuthHandler(logger, googleProvider, userSvc, m, cfg.ExposeErrorDetails),
		Sports:         apihttp.NewSportsHandler(logger, sportsClient, cfg.ExposeErrorDetails),
		Health:         apihttp.NewHealthHandler(logger, userRepo),
		Limiters:       limiters,
		Policies:       policies,
		TrustedProxies: cfg.TrustedProxies,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

// openStore elige el almacén de usuarios según STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserRepository, func()) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		repo, err := repository.NewMongoUserRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = repo.Close(closeCtx)
		}
	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		return repository.NewPgUserRepository(pool), pool.Close
	}
}

func rateLimitPolicies(cfg *config.Config) map[string]service.RateLimitPolicy {
	policies := service.DefaultRateLimitPolicies()
	override := func(category string, limit, windowMin int) {
		p := policies[category]
		if limit > 0 {
			p.Limit = limit
		}
		if windowMin > 0 {
			p.Window = time.Duration(windowMin) * time.Minute
		}
		policies[category] = p
	}
	override(service.RateCategoryRegister, cfg.RegisterLimit, cfg.RegisterWindowMin)
	override(service.RateCategoryLogin, cfg.LoginLimit, cfg.LoginWindowMin)
	override(service.RateCategoryForgotPassword, cfg.ForgotPasswordLimit, cfg.ForgotWindowMin)
	override(service.RateCategoryGeneral, cfg.GeneralLimit, cfg.GeneralWindowMin)
	return policies
}
