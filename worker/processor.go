// Package worker drives one job's pipeline end to end: segmentation,
// frame rendering, encode-manifest assembly, external encode and artifact
// promotion, reporting progress through the job store as it goes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jleboube/RSVP-Speed-Reading/config"
	"github.com/jleboube/RSVP-Speed-Reading/jobs"
	"github.com/jleboube/RSVP-Speed-Reading/render"
	"github.com/jleboube/RSVP-Speed-Reading/rsvp"
	"github.com/jleboube/RSVP-Speed-Reading/types"
	"github.com/jleboube/RSVP-Speed-Reading/video"
)

// Encoder is the external encoder contract: consume the concat manifest,
// produce one video, non-zero exit is fatal.
type Encoder interface {
	Encode(ctx context.Context, concatPath, outputPath string) error
}

// ArtifactStore is the slice of remote storage the pipeline uses.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, jobID string) (string, error)
	URLFor(ctx context.Context, jobID string) (string, error)
}

// cancelPollInterval is how often a blocked encode checks the cancel flag.
const cancelPollInterval = time.Second

// Processor owns the job state machine. One Processor call handles one
// job; the job's working directory is exclusively ours for the duration.
type Processor struct {
	store      jobs.Store
	compositor *render.Compositor
	encoder    Encoder
	artifacts  ArtifactStore // nil disables remote promotion
	workDir    string
}

func NewProcessor(store jobs.Store, compositor *render.Compositor, encoder Encoder, artifacts ArtifactStore, workDir string) *Processor {
	return &Processor{
		store:      store,
		compositor: compositor,
		encoder:    encoder,
		artifacts:  artifacts,
		workDir:    workDir,
	}
}

// Process runs the full pipeline for one queued job. Any unrecoverable
// error transitions the job to FAILURE with its working files removed; the
// error is also returned for logging. Re-delivery of an already-terminal
// job is a no-op, which makes at-least-once queue delivery safe.
func (p *Processor) Process(ctx context.Context, req types.JobRequest) error {
	job, err := p.store.Get(ctx, req.JobID)
	if err != nil {
		// A missing record with the cancel flag raised is a completed
		// delete; redelivering the request must not resurrect the job.
		if p.canceled(ctx, req.JobID) {
			return p.abort(ctx, req.JobID, filepath.Join(p.workDir, req.JobID))
		}
		// Otherwise the record is gone on redelivery after an expiry
		// sweep; rebuild it so the run is still observable.
		job = &types.Job{
			ID:        req.JobID,
			Config:    req.Config,
			State:     types.StatePending,
			CreatedAt: time.Now().UTC(),
		}
		if err := p.store.Create(ctx, job); err != nil {
			return fmt.Errorf("create job record %s: %w", req.JobID, err)
		}
	}
	if job.State.Terminal() {
		log.Printf("job %s already %s, skipping", job.ID, job.State)
		return nil
	}

	jobDir := filepath.Join(p.workDir, req.JobID)
	framesDir := filepath.Join(jobDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return p.fail(ctx, job, jobDir, fmt.Errorf("create working directory: %w", err))
	}
	if p.canceled(ctx, job.ID) {
		return p.abort(ctx, job.ID, jobDir)
	}

	groups, err := rsvp.Segment(req.Text, req.Config)
	if err != nil {
		return p.fail(ctx, job, jobDir, err)
	}
	total := len(groups)
	if total == 0 {
		return p.fail(ctx, job, jobDir, &types.ContentError{Reason: "no text content found"})
	}

	job.State = types.StateProgress
	job.WordCount = rsvp.WordCount(req.Text)

	var seq video.Sequence
	for i, group := range groups {
		if i%config.ProgressUpdateInterval == 0 {
			if p.canceled(ctx, job.ID) {
				return p.abort(ctx, job.ID, jobDir)
			}
			p.setProgress(ctx, job, i*config.FramePercentCeiling/total, i, total,
				fmt.Sprintf("Generating frames (%d/%d)", i, total))
		}

		framePath := filepath.Join(framesDir, fmt.Sprintf("frame_%06d.png", i))
		if err := p.compositor.RenderFrame(group.Text, req.Config, framePath); err != nil {
			return p.fail(ctx, job, jobDir, &types.RenderError{Frame: i, Err: err})
		}
		seq.Append(framePath, group.Duration)
	}

	concatPath := filepath.Join(jobDir, "concat.txt")
	if err := seq.WriteConcatFile(concatPath); err != nil {
		return p.fail(ctx, job, jobDir, &types.RenderError{Frame: total - 1, Err: err})
	}

	p.setProgress(ctx, job, config.EncodePercent, total, total, "Encoding video...")

	outputPath := filepath.Join(jobDir, "output.mp4")
	if err := p.encode(ctx, job.ID, concatPath, outputPath); err != nil {
		if p.canceled(ctx, job.ID) {
			return p.abort(ctx, job.ID, jobDir)
		}
		return p.fail(ctx, job, jobDir, err)
	}

	// Frames are ephemeral: gone the moment the encoder has consumed them.
	if err := os.RemoveAll(framesDir); err != nil {
		log.Printf("job %s: remove frames: %v", job.ID, err)
	}

	job.ArtifactPath = outputPath
	if p.artifacts != nil {
		p.setProgress(ctx, job, config.UploadPercent, total, total, "Uploading to cloud storage...")
		if url, ok := p.promote(ctx, job.ID, outputPath); ok {
			job.ArtifactPath = ""
			job.ArtifactURL = url
		}
	}

	job.State = types.StateSuccess
	job.Progress = types.Progress{Current: total, Total: total, Percent: 100, Message: "Completed"}
	job.ExpiresAt = time.Now().UTC().Add(config.JobRetention)
	if err := p.store.Save(ctx, job); err != nil {
		// The record was deleted mid-pipeline; honor the delete instead
		// of resurrecting the job.
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return p.abort(ctx, job.ID, jobDir)
		}
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}

	log.Printf("job %s: %d frames, %.2fs video", job.ID, seq.Len(), seq.TotalDuration())
	return nil
}

// encode blocks for the encoder's full runtime while a poller watches the
// cancel flag and kills the process when it is raised.
func (p *Processor) encode(ctx context.Context, jobID, concatPath, outputPath string) error {
	encodeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-encodeCtx.Done():
				return
			case <-ticker.C:
				if p.canceled(encodeCtx, jobID) {
					cancel()
					return
				}
			}
		}
	}()

	return p.encoder.Encode(encodeCtx, concatPath, outputPath)
}

// promote uploads the artifact and, on success, removes the local copy.
// Upload failures keep the local artifact serving downloads.
func (p *Processor) promote(ctx context.Context, jobID, outputPath string) (string, bool) {
	if _, err := p.artifacts.Upload(ctx, outputPath, jobID); err != nil {
		log.Printf("job %s: upload failed, serving locally: %v", jobID, err)
		return "", false
	}
	url, err := p.artifacts.URLFor(ctx, jobID)
	if err != nil {
		log.Printf("job %s: artifact URL failed, serving locally: %v", jobID, err)
		return "", false
	}
	if err := os.Remove(outputPath); err != nil {
		log.Printf("job %s: remove local artifact: %v", jobID, err)
	}
	return url, true
}

func (p *Processor) setProgress(ctx context.Context, job *types.Job, percent, current, total int, message string) {
	job.Progress = types.Progress{Current: current, Total: total, Percent: percent, Message: message}
	// Progress is publish-and-continue: a failed write never stops the
	// pipeline.
	if err := p.store.Save(ctx, job); err != nil {
		log.Printf("job %s: progress update failed: %v", job.ID, err)
	}
}

func (p *Processor) canceled(ctx context.Context, jobID string) bool {
	flagged, err := p.store.CancelRequested(ctx, jobID)
	if err != nil {
		return false
	}
	return flagged
}

// abort handles a deletion request observed mid-pipeline: working files
// go, the cancel flag is acknowledged and no further state is written
// (the deleting caller owns the record).
func (p *Processor) abort(ctx context.Context, jobID, jobDir string) error {
	log.Printf("job %s: canceled, removing working files", jobID)
	if err := os.RemoveAll(jobDir); err != nil {
		log.Printf("job %s: cleanup after cancel: %v", jobID, err)
	}
	if err := p.store.ClearCancel(ctx, jobID); err != nil {
		log.Printf("job %s: clear cancel flag: %v", jobID, err)
	}
	return nil
}

// fail is the single path to the FAILURE state: partial artifacts are
// removed before the transition so a failed job never leaves anything
// retrievable.
func (p *Processor) fail(ctx context.Context, job *types.Job, jobDir string, cause error) error {
	if err := os.RemoveAll(jobDir); err != nil {
		log.Printf("job %s: cleanup after failure: %v", job.ID, err)
	}

	job.State = types.StateFailure
	job.Error = cause.Error()
	job.Progress = types.Progress{Message: cause.Error()}
	job.ExpiresAt = time.Now().UTC().Add(config.JobRetention)
	if err := p.store.Save(ctx, job); err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			// Deleted mid-pipeline; the failure state has no record to
			// land in and must not create one.
			log.Printf("job %s: deleted during processing, discarding failure state", job.ID)
		} else {
			log.Printf("job %s: save failure state: %v", job.ID, err)
		}
	}

	return fmt.Errorf("job %s failed: %w", job.ID, cause)
}
