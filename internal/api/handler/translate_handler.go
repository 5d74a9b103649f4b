package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaylee-dev/media-toolbox/internal/api/domain"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/api/model"
	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/llm"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
)

// maxUploadSize caps file translation uploads at 10 MiB of text.
const maxUploadSize = 10 << 20

// TranslateHandler handles translation job requests
type TranslateHandler struct {
	logger     *slog.Logger
	store      JobStore
	publisher  Publisher
	artifacts  *artifact.Store
	translator Translator
	templates  *template.Store
}

// NewTranslateHandler creates a new TranslateHandler instance
func NewTranslateHandler(deps *Dependencies) *TranslateHandler {
	return &TranslateHandler{
		logger:     deps.Logger,
		store:      deps.Store,
		publisher:  deps.Publisher,
		artifacts:  deps.Artifacts,
		translator: deps.Translator,
		templates:  deps.TranslationTemplates,
	}
}

func endpointFromParams(p dto.LLMParams) llm.Endpoint {
	return llm.Endpoint{
		BaseURL:  p.APIURL,
		APIKey:   p.APIKey,
		Model:    p.Model,
		Provider: p.Provider,
	}
}

// CreateTranslation handles POST /api/translate. The job runs on the worker
// service; exactly one of input_file and text supplies the source.
func (h *TranslateHandler) CreateTranslation(c *gin.Context) {
	var req dto.CreateTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_lang, api_url and model are required"})
		return
	}

	if (req.InputFile == "") == (req.Text == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of input_file and text is required"})
		return
	}

	jobID := uuid.New().String()
	inputFile := req.InputFile

	if inputFile != "" {
		if !h.artifacts.Exists(inputFile) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Input file not found"})
			return
		}
	} else {
		name := fmt.Sprintf("translate_input_%s.txt", jobID)
		if _, err := h.artifacts.PutBytes(name, []byte(req.Text)); err != nil {
			h.logger.Error("Failed to store translation input", slog.Any("error", err))
			respondDomainError(c, err)
			return
		}
		inputFile = name
	}

	body, err := payload.Encode(payload.Translate{
		InputFile:  inputFile,
		TargetLang: req.TargetLang,
		SrcLang:    req.SrcLang,
		Provider:   req.Provider,
		APIURL:     req.APIURL,
		APIKey:     req.APIKey,
		Model:      req.Model,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	now := time.Now().UTC()
	job := &model.Job{
		JobID:     jobID,
		JobType:   domain.JobTypeTranslate,
		Status:    domain.JobStatusPending,
		Progress:  0,
		InputData: inputFile,
		Payload:   body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.YoutubeURL != "" {
		job.YoutubeURL = sql.NullString{String: req.YoutubeURL, Valid: true}
	}

	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !publishJob(c, h.logger, h.store, h.publisher, job.JobID, job.JobType) {
		return
	}

	h.logger.Info("Translation job created",
		slog.String("job_id", job.JobID),
		slog.String("input_file", inputFile),
		slog.String("target_lang", req.TargetLang),
	)

	c.JSON(http.StatusOK, jobToDTO(job))
}

// SimpleTranslation handles POST /api/translate/simple. The translation runs
// inside the request, but still as a tracked job so it shows up in history and
// can be cancelled from another request.
func (h *TranslateHandler) SimpleTranslation(c *gin.Context) {
	var req dto.SimpleTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text, target_lang, api_url and model are required"})
		return
	}

	tmpl := h.templates.Get()
	if req.SystemPrompt != "" {
		tmpl.SystemPrompt = req.SystemPrompt
	}

	translated, job, ok := h.runSyncTranslation(c, syncTranslation{
		endpoint:   endpointFromParams(req.LLMParams),
		template:   tmpl,
		text:       req.Text,
		targetLang: req.TargetLang,
		srcLang:    req.SrcLang,
	})
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.SimpleTranslationResponse{
		TranslatedText: translated,
		Job:            jobToDTO(job),
	})
}

// FileTranslation handles POST /api/translate/file. Plain-text uploads only;
// the upload is kept as an input artifact alongside the translation output.
func (h *TranslateHandler) FileTranslation(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	params := dto.LLMParams{
		Provider: c.PostForm("provider"),
		APIURL:   c.PostForm("api_url"),
		APIKey:   c.PostForm("api_key"),
		Model:    c.PostForm("model"),
	}
	targetLang := c.PostForm("target_lang")

	if params.APIURL == "" || params.Model == "" || targetLang == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_lang, api_url and model are required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".txt" && ext != ".md" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .txt and .md files are supported"})
		return
	}

	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	tmpl := h.templates.Get()
	if sp := c.PostForm("system_prompt"); sp != "" {
		tmpl.SystemPrompt = sp
	}

	translated, job, ok := h.runSyncTranslation(c, syncTranslation{
		endpoint:      endpointFromParams(params),
		template:      tmpl,
		text:          string(data),
		targetLang:    targetLang,
		srcLang:       c.PostForm("src_lang"),
		inputFilename: fileHeader.Filename,
	})
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.FileTranslationResponse{
		TranslatedText: translated,
		OriginalText:   string(data),
		Job:            jobToDTO(job),
	})
}

type syncTranslation struct {
	endpoint      llm.Endpoint
	template      template.Template
	text          string
	targetLang    string
	srcLang       string
	inputFilename string
}

// runSyncTranslation tracks an in-request translation as a job: the row is
// created processing-adjacent (pending then claimed immediately), progress is
// written per chunk, and a concurrent cancel stops the pipeline between
// chunks. On any outcome the returned job row reflects the final status.
func (h *TranslateHandler) runSyncTranslation(c *gin.Context, st syncTranslation) (string, *model.Job, bool) {
	ctx := c.Request.Context()
	jobID := uuid.New().String()

	inputName := fmt.Sprintf("translate_input_%s.txt", jobID)
	if st.inputFilename != "" {
		inputName = fmt.Sprintf("translate_input_%s%s", jobID, strings.ToLower(filepath.Ext(st.inputFilename)))
	}
	if _, err := h.artifacts.PutBytes(inputName, []byte(st.text)); err != nil {
		h.logger.Error("Failed to store translation input", slog.Any("error", err))
		respondDomainError(c, err)
		return "", nil, false
	}

	now := time.Now().UTC()
	job := &model.Job{
		JobID:     jobID,
		JobType:   domain.JobTypeTranslate,
		Status:    domain.JobStatusPending,
		InputData: inputName,
		Payload:   "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateJob(ctx, job); err != nil {
		h.logger.Error("Failed to create job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return "", nil, false
	}

	if err := h.store.MarkProcessing(ctx, jobID); err != nil {
		respondDomainError(c, err)
		return "", nil, false
	}

	translated, err := h.translator.Run(ctx, translate.Request{
		Endpoint:   st.endpoint,
		Template:   st.template,
		Text:       st.text,
		TargetLang: st.targetLang,
		SrcLang:    st.srcLang,
	}, translate.Callbacks{
		Progress: func(percent int) {
			if err := h.store.UpdateProgress(ctx, jobID, percent); err != nil {
				h.logger.Warn("Failed to update progress",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
			}
		},
		Cancelled: func() bool {
			current, err := h.store.GetJobByID(ctx, jobID)
			if err != nil {
				return false
			}
			return current.Status == domain.JobStatusCancelled
		},
	})

	switch {
	case errors.Is(err, translate.ErrCancelled):
		// No output, no error message; the cancelled status stands.
	case errors.Is(err, template.ErrMissingPlaceholder):
		if markErr := h.store.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			h.logger.Error("Failed to mark job failed", slog.String("job_id", jobID), slog.Any("error", markErr))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, false
	case err != nil:
		h.logger.Error("Translation failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		if markErr := h.store.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			h.logger.Error("Failed to mark job failed", slog.String("job_id", jobID), slog.Any("error", markErr))
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Translation failed: " + err.Error()})
		return "", nil, false
	default:
		outputName := fmt.Sprintf("translation_%s.txt", jobID)
		if _, putErr := h.artifacts.PutBytes(outputName, []byte(translated)); putErr != nil {
			h.logger.Error("Failed to store translation output", slog.Any("error", putErr))
			if markErr := h.store.MarkFailed(ctx, jobID, "failed to store output"); markErr != nil {
				h.logger.Error("Failed to mark job failed", slog.String("job_id", jobID), slog.Any("error", markErr))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return "", nil, false
		}

		outputs := map[string]string{"translation": outputName}
		if markErr := h.store.MarkCompleted(ctx, jobID, outputs); markErr != nil {
			// A cancel raced the final chunk; the cancellation wins and the
			// output must not be attached.
			h.artifacts.RemoveAll([]string{outputName})
			translated = ""
		}
	}

	final, getErr := h.store.GetJobByID(ctx, jobID)
	if getErr != nil {
		h.logger.Error("Failed to reload job", slog.String("job_id", jobID), slog.Any("error", getErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return "", nil, false
	}

	return translated, final, true
}

// GetTemplate handles GET /api/translate/template
func (h *TranslateHandler) GetTemplate(c *gin.Context) {
	tmpl := h.templates.Get()
	c.JSON(http.StatusOK, dto.TemplateRequest{
		SystemPrompt:       tmpl.SystemPrompt,
		UserPromptTemplate: tmpl.UserPromptTemplate,
	})
}

// SaveTemplate handles POST /api/translate/template
func (h *TranslateHandler) SaveTemplate(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "system_prompt and user_prompt_template are required"})
		return
	}

	err := h.templates.Save(template.Template{
		SystemPrompt:       req.SystemPrompt,
		UserPromptTemplate: req.UserPromptTemplate,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template saved"})
}
