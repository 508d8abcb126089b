// Package api exposes the job surface over HTTP: submit, status,
// download, delete and health.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jleboube/RSVP-Speed-Reading/jobs"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// ArtifactReader is the slice of remote storage the API needs to serve
// downloads and deletes.
type ArtifactReader interface {
	URLFor(ctx context.Context, jobID string) (string, error)
	Exists(ctx context.Context, jobID string) bool
	Delete(ctx context.Context, jobID string) bool
}

// Server carries the collaborators the controllers need. Submit hands the
// job to the task queue (or an in-process worker when no broker is
// configured).
type Server struct {
	store     jobs.Store
	submit    func(ctx context.Context, req types.JobRequest) error
	artifacts ArtifactReader // nil when remote storage is disabled
	workDir   string
}

func NewServer(store jobs.Store, submit func(ctx context.Context, req types.JobRequest) error, artifacts ArtifactReader, workDir string) *Server {
	return &Server{store: store, submit: submit, artifacts: artifacts, workDir: workDir}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	s.RegisterJobRoutes(r)
	RegisterHealthRoutes(r)
	return r
}
