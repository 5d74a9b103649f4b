package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaylee-dev/media-toolbox/internal/api/domain"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/api/model"
	"github.com/jaylee-dev/media-toolbox/internal/api/storage"
	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/llm"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
)

// JobStore is the job persistence surface the handlers depend on.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	CancelJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
	MarkProcessing(ctx context.Context, jobID string) error
	UpdateProgress(ctx context.Context, jobID string, percent int) error
	MarkCompleted(ctx context.Context, jobID string, outputs map[string]string) error
	MarkFailed(ctx context.Context, jobID, errorMsg string) error
}

// Publisher hands freshly created jobs to the worker service.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Translator runs the chunked translation pipeline for the synchronous
// translation endpoints.
type Translator interface {
	Run(ctx context.Context, req translate.Request, cb translate.Callbacks) (string, error)
}

// ChatClient issues a single chat completion (release note conversion).
type ChatClient interface {
	Complete(ctx context.Context, ep llm.Endpoint, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger               *slog.Logger
	Store                JobStore
	Publisher            Publisher
	Artifacts            *artifact.Store
	Translator           Translator
	ChatClient           ChatClient
	TranslationTemplates *template.Store
	ReleaseNoteTemplates *template.Store
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	store     JobStore
	artifacts *artifact.Store
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		store:     deps.Store,
		artifacts: deps.Artifacts,
	}
}

// jobToDTO converts a job row into its API shape, decoding the output map.
func jobToDTO(job *model.Job) dto.JobDTO {
	output := map[string]string{}
	if job.OutputFiles.Valid && job.OutputFiles.String != "" {
		if err := json.Unmarshal([]byte(job.OutputFiles.String), &output); err != nil {
			output = map[string]string{}
		}
	}

	return dto.JobDTO{
		ID:         job.JobID,
		Type:       job.JobType,
		Status:     job.Status,
		Progress:   job.Progress,
		Input:      job.InputData,
		Output:     output,
		Error:      job.ErrorMessage.String,
		YoutubeURL: job.YoutubeURL.String,
		CreatedAt:  job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  job.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// outputArtifacts lists the artifact names referenced by a job's output map.
func outputArtifacts(job *model.Job) []string {
	if !job.OutputFiles.Valid || job.OutputFiles.String == "" {
		return nil
	}

	output := map[string]string{}
	if err := json.Unmarshal([]byte(job.OutputFiles.String), &output); err != nil {
		return nil
	}

	names := make([]string, 0, len(output))
	for _, name := range output {
		names = append(names, name)
	}
	return names
}

// queueMessage is the body published to RabbitMQ for each new job. The worker
// loads everything else from the jobs table.
type queueMessage struct {
	JobID   string `json:"job_id"`
	JobType string `json:"job_type"`
}

// publishJob enqueues a created job. On publish failure the job is marked
// failed so it does not sit in pending forever.
func publishJob(c *gin.Context, logger *slog.Logger, store JobStore, publisher Publisher, jobID, jobType string) bool {
	body, err := json.Marshal(queueMessage{JobID: jobID, JobType: jobType})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	if err := publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		logger.Error("Failed to publish job",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)

		if markErr := store.MarkFailed(c.Request.Context(), jobID, "failed to enqueue job"); markErr != nil {
			logger.Error("Failed to mark unpublished job failed",
				slog.String("job_id", jobID),
				slog.Any("error", markErr),
			)
		}

		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue job"})
		return false
	}

	return true
}

// respondDomainError maps domain errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Job is already in a terminal status"})
	case errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, artifact.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
	case errors.Is(err, template.ErrMissingPlaceholder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
