package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/template"
)

// releaseNoteTemperature is higher than translation on purpose; marketing
// copy benefits from some variation.
const releaseNoteTemperature = 0.7

// ReleaseNoteHandler converts developer change notes into customer-facing
// release notes through a single chat completion.
type ReleaseNoteHandler struct {
	logger    *slog.Logger
	chat      ChatClient
	templates *template.Store
}

// NewReleaseNoteHandler creates a new ReleaseNoteHandler instance
func NewReleaseNoteHandler(deps *Dependencies) *ReleaseNoteHandler {
	return &ReleaseNoteHandler{
		logger:    deps.Logger,
		chat:      deps.ChatClient,
		templates: deps.ReleaseNoteTemplates,
	}
}

// Convert handles POST /api/release-note/convert. The conversion is a single
// request, so it is not tracked as a job.
func (h *ReleaseNoteHandler) Convert(c *gin.Context) {
	var req dto.ConvertReleaseNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input_text, api_url and model are required"})
		return
	}

	tmpl := h.templates.Get()
	if err := tmpl.Validate(template.InputTextPlaceholder); err != nil {
		respondDomainError(c, err)
		return
	}

	vars := map[string]string{"input_text": req.InputText}

	converted, err := h.chat.Complete(
		c.Request.Context(),
		endpointFromParams(req.LLMParams),
		tmpl.RenderSystem(vars),
		tmpl.RenderUser(vars),
		releaseNoteTemperature,
	)
	if err != nil {
		h.logger.Error("Release note conversion failed", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Conversion failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"converted_text": converted})
}

// GetTemplate handles GET /api/release-note/template
func (h *ReleaseNoteHandler) GetTemplate(c *gin.Context) {
	tmpl := h.templates.Get()
	c.JSON(http.StatusOK, dto.TemplateRequest{
		SystemPrompt:       tmpl.SystemPrompt,
		UserPromptTemplate: tmpl.UserPromptTemplate,
	})
}

// SaveTemplate handles POST /api/release-note/template
func (h *ReleaseNoteHandler) SaveTemplate(c *gin.Context) {
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
