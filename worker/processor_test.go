package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jleboube/RSVP-Speed-Reading/jobs"
	"github.com/jleboube/RSVP-Speed-Reading/render"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// fakeEncoder stands in for ffmpeg: it reads the concat manifest, records
// what it saw and writes a placeholder artifact.
type fakeEncoder struct {
	fail         bool
	manifest     string
	framesListed int
}

func (e *fakeEncoder) Encode(ctx context.Context, concatPath, outputPath string) error {
	data, err := os.ReadFile(concatPath)
	if err != nil {
		return err
	}
	e.manifest = string(data)
	for _, line := range strings.Split(e.manifest, "\n") {
		if strings.HasPrefix(line, "file '") {
			e.framesListed++
		}
	}
	if e.fail {
		return &types.EncodeError{Output: "ffmpeg: moov atom not found", Err: errors.New("exit status 1")}
	}
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

// blockingEncoder holds the encode open until its context is killed,
// standing in for a long ffmpeg run.
type blockingEncoder struct {
	started chan struct{}
	killed  bool
}

func (e *blockingEncoder) Encode(ctx context.Context, concatPath, outputPath string) error {
	close(e.started)
	<-ctx.Done()
	e.killed = true
	return ctx.Err()
}

type fakeArtifacts struct {
	uploaded map[string]string
}

func (a *fakeArtifacts) Upload(ctx context.Context, localPath, jobID string) (string, error) {
	if a.uploaded == nil {
		a.uploaded = make(map[string]string)
	}
	a.uploaded[jobID] = localPath
	return fmt.Sprintf("videos/%s/output.mp4", jobID), nil
}

func (a *fakeArtifacts) URLFor(ctx context.Context, jobID string) (string, error) {
	return "https://cdn.example.com/videos/" + jobID + "/output.mp4", nil
}

func testCompositor() *render.Compositor {
	// Unresolvable paths force the embedded fallback font.
	return render.NewCompositor(render.NewFontTable(map[types.FontSelector]string{}))
}

func submitJob(t *testing.T, store jobs.Store, text string) types.JobRequest {
	t.Helper()
	cfg, err := types.NewVideoConfig(1000, "default", "#000000", "#FFFFFF", "#FF0000", true, 1, 320, 180)
	if err != nil {
		t.Fatalf("NewVideoConfig error: %v", err)
	}
	job := jobs.NewJob(cfg, 0)
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return types.JobRequest{JobID: job.ID, Text: text, Config: cfg}
}

func TestProcessEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()
	enc := &fakeEncoder{}

	req := submitJob(t, store, "Speed reading is great.")
	proc := NewProcessor(store, testCompositor(), enc, nil, workDir)

	if err := proc.Process(ctx, req); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	job, err := store.Get(ctx, req.JobID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.State != types.StateSuccess {
		t.Fatalf("state = %s; want SUCCESS (error: %s)", job.State, job.Error)
	}
	if job.WordCount != 4 {
		t.Fatalf("word count = %d; want 4", job.WordCount)
	}
	if job.Progress.Percent != 100 {
		t.Fatalf("percent = %d; want 100", job.Progress.Percent)
	}
	if job.ExpiresAt.IsZero() {
		t.Fatal("terminal job has no expiry")
	}

	// 4 groups -> 4 frames plus the deliberate final repeat in the manifest.
	if enc.framesListed != 5 {
		t.Fatalf("manifest listed %d frame entries; want 5", enc.framesListed)
	}

	// Artifact retrievable locally; frames already cleaned up.
	if job.ArtifactPath == "" {
		t.Fatal("no artifact path on SUCCESS")
	}
	if _, err := os.Stat(job.ArtifactPath); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, req.JobID, "frames")); !os.IsNotExist(err) {
		t.Fatal("frames directory survived a successful encode")
	}
}

func TestProcessEncodeFailure(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()

	req := submitJob(t, store, "some words to render here")
	proc := NewProcessor(store, testCompositor(), &fakeEncoder{fail: true}, nil, workDir)

	if err := proc.Process(ctx, req); err == nil {
		t.Fatal("expected error from failed encode")
	}

	job, err := store.Get(ctx, req.JobID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.State != types.StateFailure {
		t.Fatalf("state = %s; want FAILURE", job.State)
	}
	if job.Error == "" {
		t.Fatal("FAILURE without a message")
	}
	if !strings.Contains(job.Error, "moov atom") {
		t.Fatalf("failure message lost encoder diagnostics: %q", job.Error)
	}

	// A failed job leaves nothing retrievable.
	if _, err := os.Stat(filepath.Join(workDir, req.JobID)); !os.IsNotExist(err) {
		t.Fatal("working directory survived a failed job")
	}
	if job.ArtifactPath != "" || job.ArtifactURL != "" {
		t.Fatal("failed job carries an artifact reference")
	}
}

func TestProcessOverWordCeilingFailsBeforeRendering(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()
	enc := &fakeEncoder{}

	req := submitJob(t, store, strings.TrimSpace(strings.Repeat("word ", 100001)))
	proc := NewProcessor(store, testCompositor(), enc, nil, workDir)

	err := proc.Process(ctx, req)
	var ce *types.ContentError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ContentError; got %T: %v", err, err)
	}
	if enc.framesListed != 0 {
		t.Fatal("frames were handed to the encoder despite the ceiling")
	}
	if _, err := os.Stat(filepath.Join(workDir, req.JobID)); !os.IsNotExist(err) {
		t.Fatal("working directory left behind")
	}
}

func TestProcessUploadsArtifact(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()
	artifacts := &fakeArtifacts{}

	req := submitJob(t, store, "upload me please")
	proc := NewProcessor(store, testCompositor(), &fakeEncoder{}, artifacts, workDir)

	if err := proc.Process(ctx, req); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	job, err := store.Get(ctx, req.JobID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.ArtifactURL == "" {
		t.Fatal("no remote artifact URL after upload")
	}
	if job.ArtifactPath != "" {
		t.Fatal("local artifact path retained after promotion")
	}
	local := filepath.Join(workDir, req.JobID, "output.mp4")
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Fatal("local artifact survived promotion")
	}
	if _, ok := artifacts.uploaded[req.JobID]; !ok {
		t.Fatal("upload never happened")
	}
}

func TestProcessCanceledBeforeStart(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()

	req := submitJob(t, store, "never gets rendered")
	if err := store.RequestCancel(ctx, req.JobID); err != nil {
		t.Fatalf("RequestCancel error: %v", err)
	}

	proc := NewProcessor(store, testCompositor(), &fakeEncoder{}, nil, workDir)
	if err := proc.Process(ctx, req); err != nil {
		t.Fatalf("Process after cancel should be silent, got %v", err)
	}

	job, err := store.Get(ctx, req.JobID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.State.Terminal() {
		t.Fatalf("canceled job reached %s", job.State)
	}
	if _, err := os.Stat(filepath.Join(workDir, req.JobID)); !os.IsNotExist(err) {
		t.Fatal("working directory left behind after cancel")
	}
}

// Deleting a job mid-encode must terminate the encode, remove the working
// files and leave the record deleted. The delete endpoint raises the
// cancel flag and then drops the record; the flag has to survive the
// record so the worker can still observe it.
func TestDeleteWhileEncodingTerminatesAndStaysDeleted(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	workDir := t.TempDir()
	enc := &blockingEncoder{started: make(chan struct{})}

	req := submitJob(t, store, "delete me while encoding")
	proc := NewProcessor(store, testCompositor(), enc, nil, workDir)

	done := make(chan error, 1)
	go func() { done <- proc.Process(ctx, req) }()
	<-enc.started

	// The delete endpoint's sequence: flag the cancel, remove files,
	// drop the record.
	if err := store.RequestCancel(ctx, req.JobID); err != nil {
		t.Fatalf("RequestCancel error: %v", err)
	}
	if err := store.Delete(ctx, req.JobID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process after delete should be silent, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never observed the cancel request")
	}

	if !enc.killed {
		t.Fatal("in-flight encode was not terminated")
	}
	if _, err := store.Get(ctx, req.JobID); err == nil {
		t.Fatal("deleted job reappeared in the store")
	}
	if _, err := os.Stat(filepath.Join(workDir, req.JobID)); !os.IsNotExist(err) {
		t.Fatal("working directory left behind after delete")
	}
	if flagged, _ := store.CancelRequested(ctx, req.JobID); flagged {
		t.Fatal("cancel flag not cleared after abort")
	}
}

// Queue redelivery of a request whose job was deleted must not rebuild
// the record.
func TestRedeliveredDeletedJobIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	enc := &fakeEncoder{}

	req := submitJob(t, store, "deleted before redelivery")
	if err := store.RequestCancel(ctx, req.JobID); err != nil {
		t.Fatalf("RequestCancel error: %v", err)
	}
	if err := store.Delete(ctx, req.JobID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	proc := NewProcessor(store, testCompositor(), enc, nil, t.TempDir())
	if err := proc.Process(ctx, req); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if _, err := store.Get(ctx, req.JobID); err == nil {
		t.Fatal("redelivery resurrected a deleted job")
	}
	if enc.framesListed != 0 {
		t.Fatal("deleted job was executed on redelivery")
	}
}

func TestProcessTerminalJobIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore()
	enc := &fakeEncoder{}

	req := submitJob(t, store, "already done")
	job, _ := store.Get(ctx, req.JobID)
	job.State = types.StateSuccess
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	proc := NewProcessor(store, testCompositor(), enc, nil, t.TempDir())
	if err := proc.Process(ctx, req); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if enc.framesListed != 0 {
		t.Fatal("terminal job was re-executed")
	}
}
