// Package config holds the service's environment configuration and the
// fixed pipeline constants.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// Config is the environment-derived service configuration, shared by the
// API server and the worker.
type Config struct {
	// Port is the HTTP API listen port.
	Port string

	// WorkDir is the root under which each job gets its exclusive
	// working directory.
	WorkDir string

	// KafkaBrokers, KafkaTopic and KafkaGroupID configure the task
	// queue. An empty broker list switches the API into in-process
	// worker mode.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// RedisAddr, RedisPassword and RedisDB configure the shared job
	// state store. An empty address selects the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// S3Bucket, S3Region and S3PublicURL configure artifact storage.
	// An empty bucket disables uploads; artifacts stay local.
	S3Bucket    string
	S3Region    string
	S3PublicURL string

	// FontPaths maps each font selector to a TTF file.
	FontPaths map[types.FontSelector]string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		WorkDir:       getenv("WORK_DIR", filepath.Join(os.TempDir(), "rsvp_videos")),
		KafkaTopic:    getenv("KAFKA_TOPIC", "rsvp-jobs"),
		KafkaGroupID:  getenv("KAFKA_GROUP_ID", "rsvp-workers"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      os.Getenv("S3_REGION"),
		S3PublicURL:   os.Getenv("S3_PUBLIC_URL"),
		FontPaths: map[types.FontSelector]string{
			types.FontDefault:   getenv("FONT_DEFAULT", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),
			types.FontSerif:     getenv("FONT_SERIF", "/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf"),
			types.FontMonospace: getenv("FONT_MONOSPACE", "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
