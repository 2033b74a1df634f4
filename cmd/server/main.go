package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/api"
	"farmsense-backend-go/internal/cache"
	"farmsense-backend-go/internal/classifier"
	"farmsense-backend-go/internal/config"
	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/db"
	"farmsense-backend-go/internal/events"
	"farmsense-backend-go/internal/identity"
	"farmsense-backend-go/internal/middleware"
	"farmsense-backend-go/internal/payments"
	"farmsense-backend-go/internal/session"
)

func main() {
	// Load .env file. In production, environment variables should be set directly.
	release := strings.ToLower(os.Getenv("GIN_MODE")) == "release"
	if !release {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}

	// --- 1. Initialize Logger (Zap) ---
	newLogger := zap.NewDevelopment
	if release {
		newLogger = zap.NewProduction
	}
	zapLogger, err := newLogger()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}

	// --- 3. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.InitFirestore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()

	identityProvider, err := identity.NewFirebaseProvider(initCtx, clients.Auth, appConfig.FirebaseAPIKey)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize identity provider", zap.Error(err))
	}

	// --- 4. Optional infrastructure: identity cache and event publisher ---
	var identityCache core.IdentityCache
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		identityCache = cache.NewIdentityCache(redisCache, appConfig.IdentityCacheTTL)
	} else {
		zapLogger.Info("REDIS_ADDR not set; identity cache disabled")
	}

	var publisher events.Publisher = events.Noop{}
	if appConfig.AMQPURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:   appConfig.AMQPURL,
			Queue: appConfig.AMQPQueue,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		zapLogger.Info("AMQP_URL not set; subscription events are not published")
	}

	// --- 5. Initialize Repositories and Services ---
	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	services := api.Services{
		Auth: core.NewAuthService(identityProvider, userRepo, identityCache, appConfig.DemoPathPrefix, zapLogger),
		Billing: core.NewBillingService(userRepo, payments.NewStripeProvider(appConfig.StripeSecretKey), identityCache, publisher, core.BillingConfig{
			WebhookSecret: appConfig.StripeWebhookSecret,
			AppURL:        appConfig.AppURL,
			PricePlans:    appConfig.PricePlans(),
		}, zapLogger),
		Detection: core.NewDetectionService(
			classifier.NewProcessClassifier(appConfig.ClassifierCommand, appConfig.ClassifierArgList(), appConfig.ClassifierTimeout, zapLogger),
			appConfig.UploadDir, appConfig.MaxUploadBytes, zapLogger),
		Users:     core.NewUserService(userRepo, identityCache, zapLogger),
		Dashboard: core.NewDashboardService(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
	}

	// --- 6. Setup Gin HTTP Engine ---
	if release {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured.")
	}

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	defer stopLimiter()
	authLimiter := middleware.NewRateLimiter(limiterCtx, appConfig.AuthRateLimitRPS, appConfig.AuthRateLimitBurst)

	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		session.NewStore(appConfig.SessionMaxAge, appConfig.SessionSecure),
		services,
		authLimiter,
	)

	// --- 7. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 8. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}
