package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"verifront/internal/config"
	"verifront/internal/core/artifact"
	"verifront/internal/core/extract"
	"verifront/internal/core/job"
	"verifront/internal/core/session"
	"verifront/internal/logger"
	rds "verifront/internal/platform/redis"
	"verifront/internal/platform/storage"
	tasks "verifront/internal/platform/tasks"
	"verifront/internal/server"
	"verifront/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Printf("[verifront] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	taskClient := tasks.New(redisSvc)
	// Extraction runs drive a single shared browser viewport, so the
	// extract queue is strictly serial.
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{extract.QueueExtract: 1},
	})

	storageSvc, err := storage.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	jobSvc := job.NewService(redisSvc)
	sessionProvider := session.NewProvider(cfg)
	artifactSvc := artifact.NewService(cfg, storageSvc)
	extractSvc := extract.NewService(cfg, jobSvc, sessionProvider, artifactSvc)

	mux := worker.NewMux()
	mux.HandleFunc(extract.TaskTypeExtract, extractSvc.HandleTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "Verifront Extractor",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Serve written verification-record artifacts under /files.
	app.Static("/files", cfg.DataDir)

	deps := server.Dependencies{
		Job:      jobSvc,
		Extract:  extractSvc,
		Artifact: artifactSvc,
		Tasks:    taskClient,
		Redis:    redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		sessionProvider.Close()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
