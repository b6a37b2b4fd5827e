package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrNoArtifacts = errors.New("no artifacts found")

// SyncArtifacts makes dir mirror bucket/prefix. An existing non-empty dir is
// left untouched unless overwrite is set. Objects are first downloaded into a
// staging dir next to dir so a failed sync never leaves a partial artifact set.
func SyncArtifacts(ctx context.Context, store ObjectStore, bucket, prefix, dir string, overwrite bool) error {
	if !overwrite {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) > 0 {
			slog.Info("artifact dir already populated, skipping sync", "dir", dir)
			return nil
		}
	}

	objects, err := store.ListObjects(ctx, bucket, dirPrefix(prefix))
	if err != nil {
		return fmt.Errorf("error listing artifacts: %w", err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("%w in %s/%s", ErrNoArtifacts, bucket, prefix)
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, os.ModePerm); err != nil {
		return fmt.Errorf("error creating artifact parent dir: %w", err)
	}

	staging := filepath.Join(parent, ".staging-"+uuid.NewString())
	defer os.RemoveAll(staging)

	if err := store.DownloadDir(ctx, bucket, prefix, staging, false); err != nil {
		return fmt.Errorf("error downloading artifacts: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("error clearing artifact dir: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return fmt.Errorf("error moving artifacts into place: %w", err)
	}

	slog.Info("synced artifacts", "bucket", bucket, "prefix", prefix, "dir", dir, "objects", len(objects))

	return nil
}
