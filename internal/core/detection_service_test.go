package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmsense-backend-go/internal/classifier"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type stubClassifier struct {
	result classifier.Result
	err    error
	paths  []string
}

func (s *stubClassifier) Run(ctx context.Context, imagePath string) (classifier.Result, error) {
	s.paths = append(s.paths, imagePath)
	if _, err := os.Stat(imagePath); err != nil {
		return nil, err
	}
	return s.result, s.err
}

func TestDetectClassifiesImage(t *testing.T) {
	dir := t.TempDir()
	stub := &stubClassifier{result: classifier.Result{"disease": "leaf_blight", "confidence": 0.87}}
	svc := NewDetectionService(stub, dir, 1<<20, nil)

	res, err := svc.Detect(context.Background(), Image{Filename: "leaf.PNG", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	assert.Equal(t, "leaf_blight", res["disease"])

	require.Len(t, stub.paths, 1)
	assert.True(t, strings.HasSuffix(stub.paths[0], ".png"))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "staged upload must be removed")
}

func TestDetectValidation(t *testing.T) {
	stub := &stubClassifier{}
	svc := NewDetectionService(stub, t.TempDir(), 16, nil)

	cases := map[string]struct {
		img  Image
		want string
	}{
		"missing":          {Image{}, MsgNoImage},
		"empty":            {Image{Filename: "a.png", Body: bytes.NewReader(nil)}, MsgNoImage},
		"declared too big": {Image{Filename: "a.png", Size: 17, Body: bytes.NewReader(pngHeader)}, MsgImageTooLarge},
		"actually too big": {Image{Filename: "a.png", Size: 1, Body: bytes.NewReader(pngHeader)}, MsgImageTooLarge},
		"not an image":     {Image{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")}, MsgNotAnImage},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Detect(context.Background(), tc.img)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.want, verr.Message)
		})
	}
	assert.Empty(t, stub.paths)
}

func TestDetectClassifierFailureIsUpstream(t *testing.T) {
	stub := &stubClassifier{err: &classifier.Error{Reason: classifier.ReasonTimeout, Err: errors.New("slow")}}
	svc := NewDetectionService(stub, t.TempDir(), 1<<20, nil)

	_, err := svc.Detect(context.Background(), Image{Filename: "leaf.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "classifier", upstream.Service)
	assert.Equal(t, ReasonTimeout, upstream.Reason)
}
