// Package classifier runs the external crop-disease image classifier.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Reason classifies a classifier failure.
type Reason string

const (
	ReasonUnavailable     Reason = "unavailable"
	ReasonTimeout         Reason = "timeout"
	ReasonExitStatus      Reason = "exit_status"
	ReasonMalformedOutput Reason = "malformed_output"
)

// Error is returned by Run for every failed invocation.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("classifier %s: %v", e.Reason, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Result is the classifier's JSON object, passed through unchanged.
type Result map[string]interface{}

// Classifier labels the image stored at path.
type Classifier interface {
	Run(ctx context.Context, imagePath string) (Result, error)
}

type prediction struct {
	Disease    string   `json:"disease" validate:"required_without=Label"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0"`
}

// ProcessClassifier invokes an external command with the image path as its
// last argument and reads one JSON object from its standard output.
type ProcessClassifier struct {
	command  string
	args     []string
	timeout  time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProcessClassifier creates a ProcessClassifier. Every invocation is
// bounded by timeout in addition to the caller's context.
func NewProcessClassifier(command string, args []string, timeout time.Duration, logger *zap.Logger) *ProcessClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessClassifier{
		command:  command,
		args:     args,
		timeout:  timeout,
		validate: validator.New(),
		logger:   logger,
	}
}

func (p *ProcessClassifier) Run(ctx context.Context, imagePath string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string(nil), p.args...), imagePath)
	cmd := exec.CommandContext(ctx, p.command, args...)
	// Children of the command may keep the pipes open after it is killed.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &Error{Reason: ReasonTimeout, Err: fmt.Errorf("no result after %s", p.timeout)}
		case errors.As(err, &exitErr):
			p.logger.Warn("Classifier exited with error",
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.String("stderr", truncate(stderr.String(), 512)))
			return nil, &Error{Reason: ReasonExitStatus, Err: err}
		default:
			return nil, &Error{Reason: ReasonUnavailable, Err: err}
		}
	}
	p.logger.Debug("Classifier finished", zap.Duration("elapsed", time.Since(start)))

	return p.parse(stdout.Bytes())
}

// parse decodes the last non-empty output line; earlier lines are treated
// as diagnostics.
func (p *ProcessClassifier) parse(out []byte) (Result, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, &Error{Reason: ReasonMalformedOutput, Err: errors.New("empty output")}
	}

	var result Result
	if err := json.Unmarshal([]byte(last), &result); err != nil {
		return nil, &Error{Reason: ReasonMalformedOutput, Err: err}
	}
	var pred prediction
	if err := json.Unmarshal([]byte(last), &pred); err != nil {
		return nil, &Error{Reason: ReasonMalformedOutput, Err: err}
	}
	if err := p.validate.Struct(pred); err != nil {
		return nil, &Error{Reason: ReasonMalformedOutput, Err: err}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Classifier = (*ProcessClassifier)(nil)
