package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/middleware"
	"farmsense-backend-go/internal/models"
)

// maxWebhookBytes bounds the webhook body read. Stripe events are far
// smaller.
const maxWebhookBytes = 1 << 20

// BillingHandler handles billing-related API endpoints.
type BillingHandler struct {
	billingService core.BillingService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, logger: logger}
}

// mapBillingErrorToStatus maps errors from core.BillingService to HTTP status codes and ErrorResponse.
func mapBillingErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	var (
		verr     *core.ValidationError
		upstream *core.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message})
	case errors.Is(err, core.ErrWebhookSignature):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Webhook signature verification failed"})
	case errors.Is(err, core.ErrBillingCustomerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No billing account found for this user"})
	case errors.Is(err, core.ErrCheckoutSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Checkout session not found"})
	case errors.As(err, &upstream):
		logger.Error("Stripe Client Error", zap.String("reason", upstream.Reason), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Payment provider error", Details: "Could not complete the operation with the payment provider."})
	default:
		logger.Error("Internal Server Error in BillingHandler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
	}
}

// CreateCheckoutSession handles POST /api/create-checkout-session
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "priceId and userId are required"})
		return
	}

	cs, err := h.billingService.CreateCheckoutSession(c.Request.Context(), req.PriceID, req.UserID)
	if err != nil {
		mapBillingErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutSessionResponse{SessionID: cs.ID, URL: cs.URL})
}

// Webhook handles POST /api/stripe/webhook. The raw body is passed on
// untouched; the signature covers its exact bytes.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read request body"})
		return
	}

	if err := h.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		mapBillingErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}

// GetSubscription handles GET /api/stripe/subscription
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	sub, err := h.billingService.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		mapBillingErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SubscriptionResponse{Subscription: sub})
}

// CreatePortalSession handles POST /api/stripe/create-portal-session
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	url, err := h.billingService.CreatePortalSession(c.Request.Context(), userID)
	if err != nil {
		mapBillingErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PortalSessionResponse{URL: url})
}

// VerifyPayment handles GET /api/stripe/verify-payment?session_id=
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	v, err := h.billingService.VerifyPayment(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		mapBillingErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, VerifyPaymentResponse{
		Status:        v.Status,
		PaymentStatus: v.PaymentStatus,
		CustomerEmail: v.CustomerEmail,
	})
}
