package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/infra/config"
	"github.com/avrorin/estate-api/internal/infra/database"
	googleinfra "github.com/avrorin/estate-api/internal/infra/google"
	kafkainfra "github.com/avrorin/estate-api/internal/infra/kafka"
	"github.com/avrorin/estate-api/internal/infra/logger"
	redisinfra "github.com/avrorin/estate-api/internal/infra/redis"
	"github.com/avrorin/estate-api/internal/infra/security"
	postgresrepo "github.com/avrorin/estate-api/internal/repository/postgres"
	redisrepo "github.com/avrorin/estate-api/internal/repository/redis"
	"github.com/avrorin/estate-api/internal/transport/http/handlers"
	"github.com/avrorin/estate-api/internal/transport/http/middleware"
	"github.com/avrorin/estate-api/internal/transport/http/routes"
	"github.com/avrorin/estate-api/internal/usecase"
)

// Application owns the wired service graph and the HTTP server lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires the full application from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	codec, err := security.NewAccessTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init access token codec: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	identity := googleinfra.NewVerifier(cfg.Google.ClientID, cfg.Google.JWKSURL, log)

	notifier := usecase.NewAdminNotifier(repos.Users, repos.Notifications, log)
	authService := usecase.NewAuthService(cfg, repos.Users, repos.Tokens, codec, identity, eventPublisher, notifier, log)
	registrationService := usecase.NewRegistrationService(repos.Users, security.NewPasswordPolicy(), eventPublisher, notifier, log)

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), "estate:rate-limit", longestWindow(cfg.RateLimit)*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(nil, "estate")
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		RateLimiter:  rateLimiter,
		Metrics:      metrics,
		Auth:         authService,
		Registration: registrationService,
		Health:       handlers.NewHealthHandler(pool, redisClient),
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() { _ = a.logger.Sync() }()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting estate API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func longestWindow(cfg config.RateLimitSettings) time.Duration {
	longest := cfg.LoginWindow
	if cfg.RegisterWindow > longest {
		longest = cfg.RegisterWindow
	}
	if cfg.RefreshWindow > longest {
		longest = cfg.RefreshWindow
	}
	if longest <= 0 {
		longest = 15 * time.Minute
	}
	return longest
}
