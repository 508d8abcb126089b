package jobs

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ArtifactRemover is the slice of artifact storage the reaper needs.
type ArtifactRemover interface {
	Delete(ctx context.Context, jobID string) bool
}

// Reaper removes expired jobs: the record, the job's working directory and
// any remote artifact. Expiry is an explicit timestamp on the record, so a
// restart never loses scheduled cleanups.
type Reaper struct {
	store     Store
	workDir   string
	artifacts ArtifactRemover // nil when remote storage is disabled
	interval  time.Duration
}

func NewReaper(store Store, workDir string, artifacts ArtifactRemover, interval time.Duration) *Reaper {
	return &Reaper{store: store, workDir: workDir, artifacts: artifacts, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx, time.Now()); err != nil {
				log.Printf("reaper sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("reaper removed %d expired job(s)", n)
			}
		}
	}
}

// Sweep removes every job whose expiry passed before now and returns how
// many were reaped.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := r.store.ExpiredIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, id := range ids {
		if err := os.RemoveAll(filepath.Join(r.workDir, id)); err != nil {
			log.Printf("reaper: remove working dir for %s: %v", id, err)
		}
		if r.artifacts != nil {
			r.artifacts.Delete(ctx, id)
		}
		if err := r.store.Delete(ctx, id); err != nil {
			log.Printf("reaper: delete job %s: %v", id, err)
			continue
		}
		if err := r.store.ClearCancel(ctx, id); err != nil {
			log.Printf("reaper: clear cancel flag for %s: %v", id, err)
		}
		reaped++
	}
	return reaped, nil
}
