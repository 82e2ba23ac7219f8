package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"skillswap-service/internal/config"
	"skillswap-service/internal/db"
	"skillswap-service/internal/handlers"
	"skillswap-service/internal/identity"
	"skillswap-service/internal/logger"
	"skillswap-service/internal/middleware"
	"skillswap-service/internal/observability"
	"skillswap-service/internal/rabbitmq"
	"skillswap-service/internal/repositories"
	"skillswap-service/internal/services"
	"skillswap-service/internal/telemetry"
	"skillswap-service/internal/ws"
)

const auditRoutingKey = "audit.skillswap"

func main() {
	dotenvFiles := config.LoadDotEnv()

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Env, cfg.ServiceName)
	log := logger.Get()
	log.Info().Strs("dotenv", dotenvFiles).Str("env", cfg.Env).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownTracer = func(context.Context) error { return nil }
	}

	database, err := db.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	redisClient := connectRedis(ctx, cfg.Redis)

	verifier, closeVerifier, err := buildVerifier(cfg.Identity, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up identity")
	}
	defer closeVerifier()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("noop_reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Env)

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	swapRepo := repositories.NewSwapRepo(database)

	chatService := services.NewChatService(chatRepo, messageRepo, userRepo, swapRepo)
	swapService := services.NewSwapService(swapRepo, userRepo)
	// no hosted completion model is configured; ranking stays deterministic
	recommendationService := services.NewRecommendationService(userRepo, nil)

	var hubRedis redis.UniversalClient
	if redisClient != nil {
		hubRedis = redisClient
	}
	hub := ws.NewHub(hubRedis)
	go hub.Run()
	defer hub.Stop()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", observability.MetricsHandler())
	router.GET("/healthz", handlers.Healthz(database))

	api := router.Group("/api", middleware.AuthMiddleware(verifier))
	handlers.NewChatHandler(chatService, audit).Register(api)
	handlers.NewUserHandler(userRepo).Register(api)
	handlers.NewSwapHandler(swapService, hub, audit).Register(api)
	handlers.NewRecommendationHandler(recommendationService).Register(api)

	router.GET("/ws", ws.NewHandler(hub, chatService, userRepo, verifier, publisher).Handle)
	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// connectRedis returns nil when redis is not configured or unreachable.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		logger.Get().Info().Msg("redis disabled: empty address")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Get().Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, continuing without it")
		_ = client.Close()
		return nil
	}
	logger.Get().Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return client
}

func buildVerifier(cfg config.IdentityConfig, redisClient *redis.Client) (identity.Verifier, func(), error) {
	var (
		verifier identity.Verifier
		closer   = func() {}
	)

	switch cfg.Mode {
	case "grpc":
		conn, err := identity.DialAuthService(cfg.AuthGRPCAddr)
		if err != nil {
			return nil, nil, err
		}
		verifier = identity.NewGRPCVerifier(conn)
		closer = func() { _ = conn.Close() }
	default:
		verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	}

	if redisClient != nil && cfg.TokenCacheTTL > 0 {
		verifier = identity.NewCachedVerifier(verifier, redisClient, cfg.TokenCacheTTL)
	}
	return verifier, closer, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
