package classifier

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string, timeout time.Duration) *ProcessClassifier {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	return NewProcessClassifier("sh", []string{"-c", script, "classifier"}, timeout, nil)
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var cerr *Error
	require.True(t, errors.As(err, &cerr), "unexpected error %v", err)
	return cerr.Reason
}

func TestRunReturnsClassifierJSON(t *testing.T) {
	c := shell(t, `echo "loading model"; echo "{\"disease\":\"leaf_rust\",\"confidence\":0.91,\"image\":\"$1\"}"`, 5*time.Second)

	res, err := c.Run(context.Background(), "/tmp/leaf.jpg")
	require.NoError(t, err)
	assert.Equal(t, "leaf_rust", res["disease"])
	assert.Equal(t, 0.91, res["confidence"])
	assert.Equal(t, "/tmp/leaf.jpg", res["image"])
}

func TestRunAcceptsLabel(t *testing.T) {
	c := shell(t, `echo '{"label":"healthy","confidence":1}'`, 5*time.Second)

	res, err := c.Run(context.Background(), "img.png")
	require.NoError(t, err)
	assert.Equal(t, "healthy", res["label"])
}

func TestRunTimeout(t *testing.T) {
	c := shell(t, `sleep 5`, 100*time.Millisecond)

	start := time.Now()
	_, err := c.Run(context.Background(), "img.png")
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, reasonOf(t, err))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunExitStatus(t *testing.T) {
	c := shell(t, `echo boom >&2; exit 3`, 5*time.Second)

	_, err := c.Run(context.Background(), "img.png")
	assert.Equal(t, ReasonExitStatus, reasonOf(t, err))
}

func TestRunMalformedOutput(t *testing.T) {
	for name, script := range map[string]string{
		"empty":         `true`,
		"not json":      `echo nope`,
		"no confidence": `echo '{"disease":"rust"}'`,
		"no label":      `echo '{"confidence":0.5}'`,
		"array":         `echo '[1,2]'`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := shell(t, script, 5*time.Second).Run(context.Background(), "img.png")
			assert.Equal(t, ReasonMalformedOutput, reasonOf(t, err))
		})
	}
}

func TestRunUnavailable(t *testing.T) {
	c := NewProcessClassifier("/nonexistent/classifier-bin", nil, time.Second, nil)

	_, err := c.Run(context.Background(), "img.png")
	assert.Equal(t, ReasonUnavailable, reasonOf(t, err))
}
