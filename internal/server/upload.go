package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/events"
	"github.com/invoicelens/invoice-extractor/internal/orchestrator"
)

// handleUpload accepts a multipart document, stores it under the upload dir
// and enqueues an extraction job. The response carries the job id; progress
// is observed over the websocket endpoint.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > s.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadSize),
		})
		return
	}

	ext := constants.NormalizeExt(filepath.Ext(fileHeader.Filename))
	if ext == "" {
		ext = constants.MapContentTypeToExt(fileHeader.Header.Get("Content-Type"))
	}
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.respondError(c, err)
		return
	}

	jobID := uuid.NewString()
	safeName := sanitizeFilename(fileHeader.Filename)
	dst := filepath.Join(s.cfg.UploadDir, jobID+"_"+safeName)
	if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
		s.respondError(c, err)
		return
	}

	job := orchestrator.Job{ID: jobID, FilePath: dst, FileName: safeName}

	// Instant feedback: publish and respond before handing the job to the
	// queue, which blocks under backpressure. Publishing first also keeps
	// the "processing" event ahead of any worker-emitted event for this job.
	s.bus.Publish(events.Event{
		JobID:   jobID,
		Status:  constants.EventProcessing,
		Message: "upload received, queued for processing",
	})

	s.logger.Info("server.upload.accepted", "job_id", jobID, "file", safeName, "size", fileHeader.Size)
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  jobID,
		"message": "upload accepted, processing started",
	})

	go func() {
		if err := s.queue.Enqueue(context.Background(), job); err != nil {
			s.logger.Error("server.upload.enqueue_failed", "job_id", jobID, "error", err)
			s.bus.Publish(events.Event{
				JobID:   jobID,
				Status:  constants.EventError,
				Message: "upload was not processed: " + err.Error(),
			})
		}
	}()
}

// sanitizeFilename keeps the base name and strips path separators.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return name
}
