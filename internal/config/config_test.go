package config_test

import (
	"leaf-backend/internal/config"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONNX_RUNTIME_DYLIB", "/usr/lib/libonnxruntime.so")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8000", cfg.Addr())
	assert.Equal(t, "./models", cfg.ArtifactDir)
	assert.Equal(t, filepath.Join("models", "manifest.yaml"), cfg.Manifest())
	assert.Equal(t, []string{"*"}, cfg.CorsAllowedOrigins)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadMemory)
	assert.Equal(t, "", cfg.Store.Bucket)
	assert.Equal(t, "s3", cfg.Store.Kind)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ONNX_RUNTIME_DYLIB", "/usr/lib/libonnxruntime.so")
	t.Setenv("LISTEN_HOST", "0.0.0.0")
	t.Setenv("PORT", "9000")
	t.Setenv("MANIFEST_PATH", "/etc/leaf/manifest.yaml")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://leaf.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ARTIFACT_BUCKET", "leaf-models")
	t.Setenv("ARTIFACT_STORE", "local")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "/etc/leaf/manifest.yaml", cfg.Manifest())
	assert.Equal(t, []string{"http://localhost:3000", "https://leaf.example.com"}, cfg.CorsAllowedOrigins)
	assert.Equal(t, "leaf-models", cfg.Store.Bucket)
	assert.Equal(t, "local", cfg.Store.Kind)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRequiresOnnxRuntime(t *testing.T) {
	t.Setenv("ONNX_RUNTIME_DYLIB", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":           "70000",
		"LOG_LEVEL":      "verbose",
		"LOG_FORMAT":     "xml",
		"ARTIFACT_STORE": "gcs",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("ONNX_RUNTIME_DYLIB", "/usr/lib/libonnxruntime.so")
			t.Setenv(key, value)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadStore(t *testing.T) {
	t.Setenv("ONNX_RUNTIME_DYLIB", "")
	t.Setenv("ARTIFACT_BUCKET", "leaf-models")

	cfg, err := config.LoadStore()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Kind)
	assert.Equal(t, "leaf-models", cfg.Bucket)
	assert.Equal(t, "models", cfg.Prefix)

	t.Setenv("ARTIFACT_STORE", "ftp")
	_, err = config.LoadStore()
	assert.Error(t, err)
}
