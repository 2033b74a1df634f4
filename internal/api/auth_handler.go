package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/identity"
	"farmsense-backend-go/internal/middleware"
	"farmsense-backend-go/internal/models"
	"farmsense-backend-go/internal/session"
)

// AuthHandler handles sign-in, sign-up, logout and password reset.
type AuthHandler struct {
	authService core.AuthService
	store       *session.Store
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as core.AuthService, store *session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: as, store: store, logger: logger}
}

// mapAuthErrorToStatus maps errors from core.AuthService to HTTP status
// codes. Provider text never reaches the client.
func mapAuthErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	var (
		verr  *core.ValidationError
		idErr *identity.Error
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message})
	case errors.As(err, &idErr):
		status := http.StatusBadRequest
		if idErr.Kind == identity.KindInvalidToken {
			status = http.StatusUnauthorized
		}
		if idErr.Kind == identity.KindUnknown {
			logger.Warn("Identity operation failed", zap.String("op", string(idErr.Op)), zap.Error(err))
		}
		c.JSON(status, ErrorResponse{Error: idErr.Message()})
	case errors.Is(err, core.ErrAuthInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Authentication already in progress"})
	default:
		logger.Error("Internal Server Error in AuthHandler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
	}
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email and password are required"})
		return
	}

	sess := middleware.GetSession(c)
	user, err := h.authService.SignIn(c.Request.Context(), sess, req.Email, req.Password)
	if err != nil {
		mapAuthErrorToStatus(c, h.logger, err)
		return
	}

	h.store.Write(c, sess.Token())
	if req.Remember {
		sess.SetRemember(true)
		h.store.WriteRemember(c)
	}
	c.JSON(http.StatusOK, UserResponse{User: user})
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	sess := middleware.GetSession(c)
	user, err := h.authService.SignUp(c.Request.Context(), sess, req)
	if err != nil {
		mapAuthErrorToStatus(c, h.logger, err)
		return
	}

	h.store.Write(c, sess.Token())
	c.JSON(http.StatusCreated, UserResponse{User: user})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetSession(c)); err != nil {
		h.logger.Warn("Logout failed", zap.Error(err))
	}
	h.store.Clear(c)
	c.JSON(http.StatusOK, LogoutResponse{Redirect: "/"})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email is required"})
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Email); err != nil {
		mapAuthErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset email sent. Check your inbox."})
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	snap := middleware.GetSession(c).Snapshot()
	resp := SessionResponse{
		User:     snap.User,
		State:    snap.State.String(),
		Demo:     snap.Demo,
		Remember: snap.Remember,
	}
	if !snap.ExpiresAt.IsZero() {
		resp.ExpiresAt = &snap.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}
