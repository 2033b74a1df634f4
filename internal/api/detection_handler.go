package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/core"
)

// multipartOverhead is the slack allowed above the image limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// DetectionHandler serves the crop-disease classification endpoints.
type DetectionHandler struct {
	detectionService core.DetectionService
	maxBytes         int64
	logger           *zap.Logger
}

// NewDetectionHandler creates a new DetectionHandler. maxBytes bounds the
// uploaded image; zero disables the bound.
func NewDetectionHandler(ds core.DetectionService, maxBytes int64, logger *zap.Logger) *DetectionHandler {
	return &DetectionHandler{detectionService: ds, maxBytes: maxBytes, logger: logger}
}

// mapDetectionErrorToStatus answers validation failures with their message
// and everything else with failureMsg.
func mapDetectionErrorToStatus(c *gin.Context, logger *zap.Logger, err error, failureMsg string) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message})
		return
	}
	var upstream *core.UpstreamError
	if errors.As(err, &upstream) {
		logger.Error("Classifier call failed", zap.String("reason", upstream.Reason), zap.Error(err))
	} else {
		logger.Error("Internal Server Error in DetectionHandler", zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failureMsg})
}

// DetectDisease handles POST /api/detect-disease
func (h *DetectionHandler) DetectDisease(c *gin.Context) {
	h.classify(c, "image", "Failed to detect disease")
}

// Predict handles POST /api/predict
func (h *DetectionHandler) Predict(c *gin.Context) {
	h.classify(c, "file", "Failed to run prediction")
}

func (h *DetectionHandler) classify(c *gin.Context, field, failureMsg string) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.MsgImageTooLarge})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart), errors.Is(err, multipart.ErrMessageTooLarge):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.MsgNoImage})
		default:
			h.logger.Warn("Could not parse upload", zap.String("field", field), zap.Error(err))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.MsgNoImage})
		}
		return
	}

	file, err := fh.Open()
	if err != nil {
		mapDetectionErrorToStatus(c, h.logger, err, failureMsg)
		return
	}
	defer file.Close()

	result, err := h.detectionService.Detect(c.Request.Context(), core.Image{
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     file,
	})
	if err != nil {
		mapDetectionErrorToStatus(c, h.logger, err, failureMsg)
		return
	}
	c.JSON(http.StatusOK, result)
}
