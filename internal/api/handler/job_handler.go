package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/api/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListJobs handles GET /api/jobs with optional type filter and cursor
// pagination, newest first.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), storage.JobFilter{
		JobType:  req.JobType,
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.Any("error", err))
		respondDomainError(c, err)
		return
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, 0, len(jobs))}

	hasMore := len(jobs) > pageSize
	if hasMore {
		jobs = jobs[:pageSize]
	}

	for i := range jobs {
		resp.Jobs = append(resp.Jobs, jobToDTO(&jobs[i]))
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		next, err := EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
		if err != nil {
			h.logger.Error("Failed to encode cursor", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		resp.NextCursor = next
	}

	c.JSON(http.StatusOK, resp)
}

// GetJob handles GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// CancelJob handles POST /api/jobs/:id/cancel. Cancellation wins over any
// still-running work; the worker observes the status flip between chunks.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := h.store.CancelJob(c.Request.Context(), jobID); err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Info("Job cancelled", slog.String("job_id", jobID))

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// DeleteJob handles DELETE /api/jobs/:id. Output artifacts are removed best
// effort; a missing artifact never blocks the row delete.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if err := h.store.DeleteJob(c.Request.Context(), jobID); err != nil {
		respondDomainError(c, err)
		return
	}

	if names := outputArtifacts(job); len(names) > 0 {
		h.artifacts.RemoveAll(names)
	}

	h.logger.Info("Job deleted", slog.String("job_id", jobID))

	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}
