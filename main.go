package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/jleboube/RSVP-Speed-Reading/api"
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
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	store := newStore(ctx, cfg)
	artifacts := newArtifacts(ctx, cfg)

	var artifactReader api.ArtifactReader
	var artifactRemover jobs.ArtifactRemover
	if artifacts != nil {
		artifactReader = artifacts
		artifactRemover = artifacts
	}

	submit := newSubmitter(cfg, store, artifacts)

	reaper := jobs.NewReaper(store, cfg.WorkDir, artifactRemover, config.ReapInterval)
	go reaper.Run(ctx)

	srv := api.NewServer(store, submit, artifactReader, cfg.WorkDir)
	r := srv.NewRouter()

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET    /api/health")
	log.Println("  POST   /api/generate")
	log.Println("  GET    /api/status/:id")
	log.Println("  GET    /api/download/:id")
	log.Println("  DELETE /api/job/:id")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newStore(ctx context.Context, cfg config.Config) jobs.Store {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, using in-memory job store (single process only)")
		return jobs.NewMemoryStore()
	}
	store := jobs.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("redis unavailable at %s: %v", cfg.RedisAddr, err)
	}
	log.Printf("Job store connected: redis %s", cfg.RedisAddr)
	return store
}

func newArtifacts(ctx context.Context, cfg config.Config) *storage.Artifacts {
	if cfg.S3Bucket == "" {
		log.Println("S3_BUCKET not set, artifacts served from local disk")
		return nil
	}
	artifacts, err := storage.New(ctx, storage.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatalf("artifact storage init failed: %v", err)
	}
	log.Printf("Artifact storage enabled: bucket %s", cfg.S3Bucket)
	return artifacts
}

// newSubmitter hands jobs to Kafka when brokers are configured; otherwise
// the API process runs the pipeline itself in a goroutine per job.
func newSubmitter(cfg config.Config, store jobs.Store, artifacts *storage.Artifacts) func(context.Context, types.JobRequest) error {
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("kafka producer init failed: %v", err)
		}
		log.Printf("Job queue connected: kafka %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
		return func(_ context.Context, req types.JobRequest) error {
			return producer.Publish(req.JobID, req)
		}
	}

	log.Println("KAFKA_BROKERS not set, running jobs in-process")
	var artifactStore worker.ArtifactStore
	if artifacts != nil {
		artifactStore = artifacts
	}
	comp := render.NewCompositor(render.NewFontTable(cfg.FontPaths))
	proc := worker.NewProcessor(store, comp, video.NewFFmpegEncoder(), artifactStore, cfg.WorkDir)

	return func(_ context.Context, req types.JobRequest) error {
		go func() {
			if err := proc.Process(context.Background(), req); err != nil {
				log.Printf("job %s: %v", req.JobID, err)
			}
		}()
		return nil
	}
}
