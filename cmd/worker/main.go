package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jleboube/RSVP-Speed-Reading/config"
	"github.com/jleboube/RSVP-Speed-Reading/jobs"
	"github.com/jleboube/RSVP-Speed-Reading/render"
	"github.com/jleboube/RSVP-Speed-Reading/shared/kafka"
	"github.com/jleboube/RSVP-Speed-Reading/storage"
	"github.com/jleboube/RSVP-Speed-Reading/types"
	"github.com/jleboube/RSVP-Speed-Reading/video"
	"github.com/jleboube/RSVP-Speed-Reading/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the worker")
	}
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the worker (job state is shared with the API)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := jobs.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("redis unavailable at %s: %v", cfg.RedisAddr, err)
	}

	var artifactStore worker.ArtifactStore
	if cfg.S3Bucket != "" {
		artifacts, err := storage.New(ctx, storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatalf("artifact storage init failed: %v", err)
		}
		artifactStore = artifacts
		log.Printf("Artifact storage enabled: bucket %s", cfg.S3Bucket)
	}

	comp := render.NewCompositor(render.NewFontTable(cfg.FontPaths))
	proc := worker.NewProcessor(store, comp, video.NewFFmpegEncoder(), artifactStore, cfg.WorkDir)

	handler := &kafka.TypedMessageHandler[types.JobRequest]{
		Validate: func(req *types.JobRequest) bool {
			if req.JobID == "" {
				log.Println("job message missing job id, skipping")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, req *types.JobRequest) error {
			log.Printf("processing job %s (%d bytes of text)", req.JobID, len(req.Text))
			if err := proc.Process(ctx, *req); err != nil {
				// The FAILURE state is already recorded; no automatic
				// retry, the caller resubmits.
				log.Printf("job %s: %v", req.JobID, err)
			}
			return nil
		},
		AlwaysMark: true,
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
		Handler: handler,
	})
	if err != nil {
		log.Fatalf("kafka consumer init failed: %v", err)
	}

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("kafka consumer start failed: %v", err)
	}
	log.Printf("Worker ready (topic %s, group %s)", cfg.KafkaTopic, cfg.KafkaGroupID)

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm
	log.Println("Received termination signal")

	cancel()

	// Give in-flight processing a moment to observe cancellation
	time.Sleep(2 * time.Second)

	if err := consumer.Close(); err != nil {
		log.Printf("consumer close: %v", err)
	}
}
