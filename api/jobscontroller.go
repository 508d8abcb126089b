package api

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jleboube/RSVP-Speed-Reading/config"
	"github.com/jleboube/RSVP-Speed-Reading/extract"
	"github.com/jleboube/RSVP-Speed-Reading/jobs"
	"github.com/jleboube/RSVP-Speed-Reading/rsvp"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// RegisterJobRoutes registers the job surface.
func (s *Server) RegisterJobRoutes(r *gin.Engine) {
	r.POST("/api/generate", s.handleGenerate)
	r.GET("/api/status/:id", s.handleStatus)
	r.GET("/api/download/:id", s.handleDownload)
	r.DELETE("/api/job/:id", s.handleDelete)
}

// GenerateResponse acknowledges a submitted job.
type GenerateResponse struct {
	JobID     string `json:"job_id"`
	WordCount int    `json:"word_count"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

// StatusResponse is the poller's view of a job. The fields present depend
// on the state; the typed state machine keeps them consistent.
type StatusResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Percent     int    `json:"percent"`
	Current     int    `json:"current,omitempty"`
	Total       int    `json:"total,omitempty"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	WordCount   int    `json:"word_count,omitempty"`
}

// handleGenerate accepts a text form field or an uploaded document,
// validates and clamps the configuration exactly once, and queues the job.
// Every ContentError is rejected here, before a job record exists.
func (s *Server) handleGenerate(c *gin.Context) {
	text := c.PostForm("text")

	file, fileErr := c.FormFile("file")
	if text == "" && fileErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text or file provided"})
		return
	}

	if file != nil {
		if file.Size > config.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
			return
		}
		data, err := readUpload(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload: " + err.Error()})
			return
		}
		text, err = extract.FromFile(data, file.Filename, file.Header.Get("Content-Type"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse file: " + err.Error()})
			return
		}
	}

	text = rsvp.Normalize(text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text content found"})
		return
	}
	wordCount := rsvp.WordCount(text)
	if wordCount > rsvp.MaxWords {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "text exceeds " + strconv.Itoa(rsvp.MaxWords) + " word limit (found " + strconv.Itoa(wordCount) + " words)",
		})
		return
	}

	cfg, err := types.NewVideoConfig(
		formInt(c, "wpm", 300),
		c.DefaultPostForm("font", "default"),
		c.DefaultPostForm("text_color", "#000000"),
		c.DefaultPostForm("bg_color", "#FFFFFF"),
		c.DefaultPostForm("highlight_color", "#FF0000"),
		formBool(c, "pause_on_punctuation", true),
		formInt(c, "word_grouping", 1),
		formInt(c, "width", types.DefaultWidth),
		formInt(c, "height", types.DefaultHeight),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := jobs.NewJob(cfg, wordCount)
	if err := s.store.Create(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	req := types.JobRequest{JobID: job.ID, Text: text, Config: cfg}
	if err := s.submit(c.Request.Context(), req); err != nil {
		log.Printf("job %s: submit failed: %v", job.ID, err)
		_ = s.store.Delete(c.Request.Context(), job.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		JobID:     job.ID,
		WordCount: wordCount,
		Status:    "processing",
		StatusURL: "/api/status/" + job.ID,
	})
}

// handleStatus maps the typed job state to the poller response.
func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("id")
	job, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, err)
		return
	}

	resp := StatusResponse{JobID: job.ID}
	switch job.State {
	case types.StatePending:
		resp.Status = "pending"
		resp.Message = "Job is queued..."
	case types.StateProgress:
		resp.Status = "processing"
		resp.Percent = job.Progress.Percent
		resp.Current = job.Progress.Current
		resp.Total = job.Progress.Total
		resp.Message = job.Progress.Message
	case types.StateSuccess:
		resp.Status = "completed"
		resp.Percent = 100
		resp.WordCount = job.WordCount
		resp.DownloadURL = job.ArtifactURL
		if resp.DownloadURL == "" {
			resp.DownloadURL = "/api/download/" + job.ID
		}
	case types.StateFailure:
		resp.Status = "failed"
		resp.Message = job.Error
	}

	c.JSON(http.StatusOK, resp)
}

// handleDownload serves the encoded artifact: a redirect when it lives in
// remote storage, the local file otherwise.
func (s *Server) handleDownload(c *gin.Context) {
	id := c.Param("id")
	job, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, err)
		return
	}

	if job.ArtifactURL != "" {
		c.Redirect(http.StatusFound, job.ArtifactURL)
		return
	}
	if s.artifacts != nil && s.artifacts.Exists(c.Request.Context(), id) {
		if url, err := s.artifacts.URLFor(c.Request.Context(), id); err == nil {
			c.Redirect(http.StatusFound, url)
			return
		}
	}

	path := job.ArtifactPath
	if path == "" {
		path = filepath.Join(s.workDir, id, "output.mp4")
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found or expired"})
		return
	}
	c.FileAttachment(path, "rsvp_video.mp4")
}

// handleDelete cancels an in-flight job, removes its files and
// invalidates its status.
func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := s.store.Get(ctx, id); err != nil {
		respondNotFound(c, err)
		return
	}

	if err := s.store.RequestCancel(ctx, id); err != nil {
		log.Printf("job %s: cancel flag failed: %v", id, err)
	}
	if err := os.RemoveAll(filepath.Join(s.workDir, id)); err != nil {
		log.Printf("job %s: remove working dir: %v", id, err)
	}
	if s.artifacts != nil {
		s.artifacts.Delete(ctx, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "job_id": id})
}

func respondNotFound(c *gin.Context, err error) {
	var nf *types.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func formInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.PostForm(key))
	if err != nil {
		return fallback
	}
	return v
}

func formBool(c *gin.Context, key string, fallback bool) bool {
	v, err := strconv.ParseBool(c.PostForm(key))
	if err != nil {
		return fallback
	}
	return v
}
