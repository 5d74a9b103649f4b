package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaylee-dev/media-toolbox/internal/api/domain"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/api/model"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
)

// STTHandler handles speech-to-text job requests
type STTHandler struct {
	logger    *slog.Logger
	store     JobStore
	publisher Publisher
}

// NewSTTHandler creates a new STTHandler instance
func NewSTTHandler(deps *Dependencies) *STTHandler {
	return &STTHandler{
		logger:    deps.Logger,
		store:     deps.Store,
		publisher: deps.Publisher,
	}
}

// CreateSTT handles POST /api/stt. It records a pending job and enqueues it;
// the worker service does the download and transcription.
func (h *STTHandler) CreateSTT(c *gin.Context) {
	var req dto.CreateSTTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be a valid http(s) URL"})
		return
	}

	body, err := payload.Encode(payload.STT{URL: req.URL, Model: req.Model})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	now := time.Now().UTC()
	job := &model.Job{
		JobID:      uuid.New().String(),
		JobType:    domain.JobTypeSTT,
		Status:     domain.JobStatusPending,
		Progress:   0,
		InputData:  req.URL,
		Payload:    body,
		YoutubeURL: sql.NullString{String: req.URL, Valid: true},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !publishJob(c, h.logger, h.store, h.publisher, job.JobID, job.JobType) {
		return
	}

	h.logger.Info("STT job created",
		slog.String("job_id", job.JobID),
		slog.String("url", req.URL),
	)

	c.JSON(http.StatusOK, jobToDTO(job))
}
