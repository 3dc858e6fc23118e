// main.go - the translate worker entry point: drains the translate queue and
// runs the pipeline against each job.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toonslate/toonslate-backend/configs"
	"github.com/toonslate/toonslate-backend/internal/archive"
	"github.com/toonslate/toonslate-backend/internal/detect"
	"github.com/toonslate/toonslate-backend/internal/inpaint"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/pipeline"
	"github.com/toonslate/toonslate-backend/internal/ratelimit"
	"github.com/toonslate/toonslate-backend/internal/render"
	"github.com/toonslate/toonslate-backend/internal/storage"
	"github.com/toonslate/toonslate-backend/internal/store"
	"github.com/toonslate/toonslate-backend/internal/translate"
	"github.com/toonslate/toonslate-backend/internal/worker"
)

func main() {
	cfg := configs.LoadConfig()

	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		log.Fatalf("failed to create storage root: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := store.New(ctx, store.Config{Addr: cfg.RedisHost + ":" + cfg.RedisPort, DB: cfg.RedisDB})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	jobs := jobstore.New(client, cfg.DataTTL)
	objects := storage.NewLocalStore(cfg.StorageRoot, cfg.BaseURL)

	detectLimiter := ratelimit.New(cfg.DetectionMaxRetries+1, time.Second)
	detector, err := detect.New(cfg, detectLimiter)
	if err != nil {
		log.Fatalf("failed to build detection backend: %v", err)
	}

	translateLimiter := ratelimit.New(5, time.Second)
	translator, err := translate.New(cfg, translateLimiter)
	if err != nil {
		log.Fatalf("failed to build translation backend: %v", err)
	}

	inpainter, err := inpaint.New(cfg)
	if err != nil {
		log.Fatalf("failed to build inpainting backend: %v", err)
	}

	renderer, err := render.NewRenderer(cfg.FontPath)
	if err != nil {
		log.Fatalf("failed to build renderer: %v", err)
	}

	archiveWriter := archive.Disabled()
	if cfg.ArchiveMongoURI != "" {
		archiveWriter, err = archive.Connect(cfg.ArchiveMongoURI, cfg.ArchiveMongoDB)
		if err != nil {
			log.Fatalf("failed to connect to archive: %v", err)
		}
		defer archiveWriter.Close()
	}

	pl := pipeline.New(detector, translator, inpainter, renderer)
	w := worker.New(client, jobs, objects, pl, archiveWriter, cfg.WorkerSoftTimeout, cfg.WorkerHardTimeout, cfg.QueuePollInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("shutting down worker...")
		cancel()
	}()

	log.Println("worker started, polling translate queue")
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("worker exited: %v", err)
	}

	log.Println("worker exited")
}
