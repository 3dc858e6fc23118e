// main.go - the API entry point and router setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toonslate/toonslate-backend/configs"
	"github.com/toonslate/toonslate-backend/internal/batch"
	"github.com/toonslate/toonslate-backend/internal/erase"
	"github.com/toonslate/toonslate-backend/internal/httpapi"
	"github.com/toonslate/toonslate-backend/internal/inpaint"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/orchestrate"
	"github.com/toonslate/toonslate-backend/internal/quota"
	"github.com/toonslate/toonslate-backend/internal/storage"
	"github.com/toonslate/toonslate-backend/internal/store"
)

func main() {
	cfg := configs.LoadConfig()

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		log.Fatalf("failed to create storage root: %v", err)
	}

	ctx := context.Background()
	client, err := store.New(ctx, store.Config{Addr: cfg.RedisHost + ":" + cfg.RedisPort, DB: cfg.RedisDB})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	jobs := jobstore.New(client, cfg.DataTTL)
	objects := storage.NewLocalStore(cfg.StorageRoot, cfg.BaseURL)
	quotaEngine := quota.New(client, cfg.IPHashSecret, cfg.WeeklyImageLimit)
	orchestrator := orchestrate.New(jobs, quotaEngine, client, cfg.MaxBatchSize)
	batches := batch.New(jobs)

	inpainter, err := inpaint.New(cfg)
	if err != nil {
		log.Fatalf("failed to build inpainting backend: %v", err)
	}

	eraser := erase.New(jobs, objects, inpainter)

	server := httpapi.New(jobs, objects, quotaEngine, orchestrator, batches, eraser, cfg.IPHashSecret)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.Static("/static", cfg.StorageRoot)

	server.Routes(router)

	srv := &http.Server{
		Addr:           ":" + cfg.HTTPPort,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
