package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"leaf-backend/internal/utils"
	"leaf-backend/pkg/api"
	"leaf-backend/pkg/client"

	"github.com/schollz/progressbar/v3"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func collectImages(paths []string) ([]string, error) {
	var images []string
	for _, path := range paths {
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (p == path || imageExts[strings.ToLower(filepath.Ext(p))]) {
				images = append(images, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error collecting images from %s: %w", path, err)
		}
	}
	return images, nil
}

func main() {
	var (
		url     = flag.String("url", "http://localhost:8000", "base url of the classification server")
		route   = flag.String("route", "model1", "model route to classify with")
		workers = flag.Int("workers", 4, "number of concurrent requests")
		scores  = flag.Bool("scores", false, "print per-class scores")
		timeout = flag.Duration("timeout", 60*time.Second, "timeout per request")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: %s [flags] <image or dir>...", os.Args[0])
	}

	images, err := collectImages(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(images) == 0 {
		log.Fatalf("no images found")
	}

	c := client.New(*url, *timeout)

	if _, err := c.Ping(context.Background()); err != nil {
		log.Fatalf("server at %s is not reachable: %v", *url, err)
	}

	queue := make(chan string, len(images))
	for _, image := range images {
		queue <- image
	}
	close(queue)

	completed := make(chan utils.CompletedTask[string, api.PredictionResponse], len(images))

	classify := func(path string) (api.PredictionResponse, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return api.PredictionResponse{}, err
		}
		return c.Predict(context.Background(), *route, path, data, *scores)
	}

	utils.RunInPool(classify, queue, completed, *workers)

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("classifying"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	var results []utils.CompletedTask[string, api.PredictionResponse]
	failed := 0
	for task := range completed {
		if task.Error != nil {
			failed++
			slog.Error("error classifying image", "path", task.Input, "error", task.Error)
		}
		results = append(results, task)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, task := range results {
		if task.Error != nil {
			continue
		}
		fmt.Printf("%s\t%s\t%.4f", task.Input, task.Result.Class, task.Result.Confidence)
		if *scores {
			for _, label := range slices.Sorted(maps.Keys(task.Result.Scores)) {
				fmt.Printf("\t%s=%.4f", label, task.Result.Scores[label])
			}
		}
		fmt.Println()
	}

	if failed > 0 {
		log.Fatalf("%d of %d images failed", failed, len(images))
	}
}
