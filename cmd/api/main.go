package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaf-backend/cmd"
	"leaf-backend/internal/api"
	"leaf-backend/internal/config"
	"leaf-backend/internal/core"
	"leaf-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func syncArtifacts(cfg *config.Config) {
	if cfg.Store.Bucket == "" {
		return
	}

	store, err := cmd.NewObjectStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := storage.SyncArtifacts(ctx, store, cfg.Store.Bucket, cfg.Store.Prefix, cfg.ArtifactDir, cfg.Store.SyncOverwrite); err != nil {
		log.Fatalf("Failed to sync artifacts from bucket %s: %v", cfg.Store.Bucket, err)
	}
}

func main() {
	log.Println("Starting leaf classification server...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, _ := cfg.SlogLevel()
	cmd.ConfigureLogging(level, cfg.LogFormat)

	syncArtifacts(cfg)

	if err := core.InitOnnxRuntime(cfg.OnnxRuntimeDylib); err != nil {
		log.Fatalf("Failed to initialize onnx runtime: %v", err)
	}
	defer func() {
		if err := core.DestroyOnnxRuntime(); err != nil {
			slog.Error("error destroying onnx runtime", "error", err)
		}
	}()

	manifest, err := core.LoadManifest(cfg.Manifest())
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}

	registry, err := core.LoadRegistry(manifest, cfg.ArtifactDir, core.NewScorerLoaders())
	if err != nil {
		log.Fatalf("Failed to load models from %s: %v", cfg.ArtifactDir, err)
	}
	defer registry.Release()

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	service := api.NewClassifierService(registry, cfg.MaxUploadMemory)
	service.AddRoutes(r)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.Addr(), "routes", len(registry.Classifiers()))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Addr(), err)
	}

	log.Println("Server stopped.")
}
