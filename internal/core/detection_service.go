package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/classifier"
)

// Detection validation messages shown to the user.
const (
	MsgNoImage       = "No image provided"
	MsgNotAnImage    = "File must be an image"
	MsgImageTooLarge = "Image is too large"
)

type detectionService struct {
	classifier classifier.Classifier
	uploadDir  string
	maxBytes   int64
	logger     *zap.Logger
}

// NewDetectionService creates a DetectionService. Uploads are staged in
// uploadDir, or the system temp directory when it is empty.
func NewDetectionService(c classifier.Classifier, uploadDir string, maxBytes int64, logger *zap.Logger) DetectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &detectionService{classifier: c, uploadDir: uploadDir, maxBytes: maxBytes, logger: logger}
}

func (s *detectionService) Detect(ctx context.Context, img Image) (classifier.Result, error) {
	if img.Body == nil {
		return nil, &ValidationError{Field: "image", Message: MsgNoImage}
	}
	if s.maxBytes > 0 && img.Size > s.maxBytes {
		return nil, &ValidationError{Field: "image", Message: MsgImageTooLarge}
	}

	path, err := s.stage(img)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove staged upload", zap.String("path", path), zap.Error(err))
		}
	}()

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect upload type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &ValidationError{Field: "image", Message: MsgNotAnImage}
	}

	result, err := s.classifier.Run(ctx, path)
	if err != nil {
		reason := ReasonUnavailable
		var cerr *classifier.Error
		if errors.As(err, &cerr) {
			reason = string(cerr.Reason)
		}
		s.logger.Error("Classifier failed", zap.String("reason", reason), zap.Error(err))
		return nil, &UpstreamError{Service: "classifier", Reason: reason, Err: err}
	}
	return result, nil
}

// stage copies the upload to a uniquely named file, enforcing the size limit
// on the bytes actually read.
func (s *detectionService) stage(img Image) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o700); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(filepath.Base(img.Filename))))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged upload: %w", err)
	}

	src := img.Body
	if s.maxBytes > 0 {
		src = io.LimitReader(img.Body, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write staged upload: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close staged upload: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return "", &ValidationError{Field: "image", Message: MsgImageTooLarge}
	case n == 0:
		_ = os.Remove(path)
		return "", &ValidationError{Field: "image", Message: MsgNoImage}
	}
	return path, nil
}
