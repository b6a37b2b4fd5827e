package integrationtests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"leaf-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bucketName = "test-bucket"
	prefix     = "models"
)

var artifacts = map[string]string{
	"manifest.yaml":    "labels: [a]",
	"model_v1.onnx":    "onnx",
	"svm_scaler.json":  `{"mean": [0]}`,
	"nested/pca.json":  `{"mean": [0], "components": [[1]]}`,
	"nested/more.onnx": "more onnx",
}

func setupTestObjectStore(t *testing.T, ctx context.Context) *storage.S3ObjectStore {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	require.NoError(t, store.CreateBucket(ctx, bucketName))
	// Creating an existing bucket is not an error.
	require.NoError(t, store.CreateBucket(ctx, bucketName))

	return store
}

func writeArtifacts(t *testing.T) string {
	dir := t.TempDir()
	for name, content := range artifacts {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func checkArtifacts(t *testing.T, dir string) {
	for name, content := range artifacts {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
}

func TestS3ObjectStore_PutAndList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := setupTestObjectStore(t, ctx)

	require.NoError(t, store.PutObject(ctx, bucketName, "a/one.bin", bytes.NewReader([]byte("12345"))))
	require.NoError(t, store.PutObject(ctx, bucketName, "b/two.bin", bytes.NewReader([]byte("12"))))

	objects, err := store.ListObjects(ctx, bucketName, "a/")
	require.NoError(t, err)
	assert.Equal(t, []storage.Object{{Name: "a/one.bin", Size: 5}}, objects)

	dest := filepath.Join(t.TempDir(), "one.bin")
	require.NoError(t, store.DownloadObject(ctx, bucketName, "a/one.bin", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))
}

func TestS3ObjectStore_UploadDownloadDir(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := setupTestObjectStore(t, ctx)

	require.NoError(t, store.UploadDir(ctx, bucketName, prefix, writeArtifacts(t)))

	objects, err := store.ListObjects(ctx, bucketName, prefix+"/")
	require.NoError(t, err)
	assert.Len(t, objects, len(artifacts))

	dest := filepath.Join(t.TempDir(), "download")
	require.NoError(t, store.DownloadDir(ctx, bucketName, prefix, dest, false))
	checkArtifacts(t, dest)

	assert.Error(t, store.DownloadDir(ctx, bucketName, prefix, dest, false))
	require.NoError(t, store.DownloadDir(ctx, bucketName, prefix, dest, true))
	checkArtifacts(t, dest)
}

func TestS3SyncArtifacts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := setupTestObjectStore(t, ctx)
	require.NoError(t, store.UploadDir(ctx, bucketName, prefix, writeArtifacts(t)))

	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, storage.SyncArtifacts(ctx, store, bucketName, prefix, dir, false))
	checkArtifacts(t, dir)

	err := storage.SyncArtifacts(ctx, store, bucketName, "empty", filepath.Join(t.TempDir(), "models"), false)
	assert.ErrorIs(t, err, storage.ErrNoArtifacts)
}
