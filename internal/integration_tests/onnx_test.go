package integrationtests

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"leaf-backend/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs the real artifacts. Requires ONNX_RUNTIME_DYLIB and TEST_ARTIFACT_DIR,
// which must contain every file named in its manifest.
func TestOnnxArtifacts(t *testing.T) {
	dylib, dir := os.Getenv("ONNX_RUNTIME_DYLIB"), os.Getenv("TEST_ARTIFACT_DIR")
	if dylib == "" || dir == "" {
		t.Skip("ONNX_RUNTIME_DYLIB and TEST_ARTIFACT_DIR must be set")
	}

	require.NoError(t, core.InitOnnxRuntime(dylib))
	t.Cleanup(func() {
		require.NoError(t, core.DestroyOnnxRuntime())
	})

	manifest, err := core.LoadManifest(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)

	registry, err := core.LoadRegistry(manifest, dir, core.NewScorerLoaders())
	require.NoError(t, err)
	defer registry.Release()

	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(100 + y%100), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	for _, c := range registry.Classifiers() {
		t.Run(c.Name(), func(t *testing.T) {
			prediction, err := c.Classify(buf.Bytes())
			require.NoError(t, err)

			assert.Contains(t, manifest.Labels, prediction.Label)
			assert.GreaterOrEqual(t, prediction.Confidence, float32(0))
			assert.LessOrEqual(t, prediction.Confidence, float32(1))

			again, err := c.Classify(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, prediction.Label, again.Label)
			assert.InDelta(t, prediction.Confidence, again.Confidence, 1e-6)
		})
	}
}
