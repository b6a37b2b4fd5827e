package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"leaf-backend/cmd"
	"leaf-backend/internal/config"
	"leaf-backend/internal/core"
	"leaf-backend/internal/storage"

	"github.com/joho/godotenv"
)

const usage = `usage: artifacts [-env file] <command> <dir>

commands:
  push <dir>   validate the manifest in dir and upload dir to the artifact bucket
  pull <dir>   download the artifact bucket into dir
`

func main() {
	envFile := flag.String("env", "", "path to load env from")
	overwrite := flag.Bool("overwrite", false, "replace a non-empty directory on pull")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	command, dir := flag.Arg(0), flag.Arg(1)

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%s': %v", *envFile, err)
		}
	}

	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Bucket == "" {
		log.Fatalf("ARTIFACT_BUCKET must be set")
	}

	store, err := cmd.NewObjectStore(*cfg)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "push":
		err = push(ctx, store, cfg, dir)
	case "pull":
		err = storage.SyncArtifacts(ctx, store, cfg.Bucket, cfg.Prefix, dir, *overwrite)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
	log.Printf("%s complete: %s <-> %s/%s", command, dir, cfg.Bucket, cfg.Prefix)
}

// push refuses to upload an artifact set whose manifest would not load.
func push(ctx context.Context, store storage.ObjectStore, cfg *config.StoreConfig, dir string) error {
	manifest, err := core.LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return err
	}

	if manifest.FeatureExtractor != nil {
		if _, err := os.Stat(core.ArtifactPath(dir, manifest.FeatureExtractor.Path)); err != nil {
			return fmt.Errorf("feature extractor artifact missing: %w", err)
		}
	}

	for _, route := range manifest.Routes {
		if _, err := os.Stat(core.ArtifactPath(dir, route.Model.Path)); err != nil {
			return fmt.Errorf("route '%s' artifact missing: %w", route.Name, err)
		}
		for _, t := range route.Preprocess.Transforms {
			if _, err := core.LoadTransform(t, dir); err != nil {
				return fmt.Errorf("route '%s': %w", route.Name, err)
			}
		}
	}

	if err := store.CreateBucket(ctx, cfg.Bucket); err != nil {
		return err
	}

	return store.UploadDir(ctx, cfg.Bucket, cfg.Prefix, dir)
}
