package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/config"
	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/middleware"
	"farmsense-backend-go/internal/session"
)

// Services groups the core services the routes dispatch to.
type Services struct {
	Auth      core.AuthService
	Billing   core.BillingService
	Detection core.DetectionService
	Users     core.UserService
	Dashboard core.DashboardService
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is expected on router already.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	store *session.Store,
	services Services,
	authLimiter *middleware.RateLimiter,
) {
	router.SetHTMLTemplate(loadTemplates())

	authHandler := NewAuthHandler(services.Auth, store, logger)
	billingHandler := NewBillingHandler(services.Billing, logger)
	detectionHandler := NewDetectionHandler(services.Detection, appConfig.MaxUploadBytes, logger)
	userHandler := NewUserHandler(services.Users, logger)
	dashboardHandler := NewDashboardHandler(services.Dashboard)
	pageHandler := NewPageHandler(appConfig.DemoPathPrefix)

	sessionMW := middleware.SessionContext(services.Auth, store, logger)
	requireUser := middleware.RequireAuth(false)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth", sessionMW)
		{
			limited := authGroup.Group("", authLimiter.Middleware())
			limited.POST("/signin", authHandler.SignIn)
			limited.POST("/signup", authHandler.SignUp)
			limited.POST("/reset-password", authHandler.ResetPassword)

			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/session", authHandler.Session)
		}

		// Stripe redirects the browser here without a session; the price and
		// user are carried in the body.
		apiGroup.POST("/create-checkout-session", billingHandler.CreateCheckoutSession)

		stripeGroup := apiGroup.Group("/stripe")
		{
			// Authenticated by the Stripe-Signature header, not a session.
			stripeGroup.POST("/webhook", billingHandler.Webhook)
			stripeGroup.GET("/verify-payment", billingHandler.VerifyPayment)
			stripeGroup.GET("/subscription", sessionMW, requireUser, billingHandler.GetSubscription)
			stripeGroup.POST("/create-portal-session", sessionMW, requireUser, billingHandler.CreatePortalSession)
		}

		apiGroup.POST("/detect-disease", detectionHandler.DetectDisease)
		apiGroup.POST("/predict", detectionHandler.Predict)

		usersGroup := apiGroup.Group("/users", sessionMW, requireUser)
		{
			usersGroup.GET("/me", userHandler.GetCurrentUser)
			usersGroup.PUT("/me/profile", userHandler.UpdateProfile)
		}

		apiGroup.GET("/dashboard/metrics", sessionMW, middleware.RequireAuth(true), dashboardHandler.Metrics)
	}

	pages := router.Group("", middleware.RouteGuard(appConfig.DemoPathPrefix))
	pageHandler.Register(pages)

	logger.Info("Routes configured", zap.Int("count", len(router.Routes())))
}
