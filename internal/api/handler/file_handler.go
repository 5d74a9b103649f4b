package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/jaylee-dev/media-toolbox/internal/artifact"
)

// FileHandler serves and manages stored artifacts.
type FileHandler struct {
	logger    *slog.Logger
	artifacts *artifact.Store
}

// NewFileHandler creates a new FileHandler instance
func NewFileHandler(deps *Dependencies) *FileHandler {
	return &FileHandler{
		logger:    deps.Logger,
		artifacts: deps.Artifacts,
	}
}

// ListFiles handles GET /api/files
func (h *FileHandler) ListFiles(c *gin.Context) {
	infos, err := h.artifacts.List()
	if err != nil {
		h.logger.Error("Failed to list artifacts", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": infos})
}

// ViewFile handles GET /api/files/:name/view, returning the content wrapped
// in JSON for inline display.
func (h *FileHandler) ViewFile(c *gin.Context) {
	name := c.Param("name")

	content, err := h.artifacts.ReadString(name)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

// DownloadFile handles GET /api/files/:name/download
func (h *FileHandler) DownloadFile(c *gin.Context) {
	name := c.Param("name")

	f, err := h.artifacts.Open(name)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/octet-stream")
	c.File(f.Name())
}

// UploadFile handles POST /api/files. Uploaded files become translation
// inputs referenced by name.
func (h *FileHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	name := filepath.Base(fileHeader.Filename)

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer src.Close()

	stored, err := h.artifacts.Put(name, src)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Info("File uploaded",
		slog.String("name", stored),
		slog.Int64("size", fileHeader.Size),
	)

	c.JSON(http.StatusOK, gin.H{"name": stored})
}

// DeleteFile handles DELETE /api/files/:name
func (h *FileHandler) DeleteFile(c *gin.Context) {
	name := c.Param("name")

	if err := h.artifacts.Remove(name); err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Info("File deleted", slog.String("name", name))

	c.JSON(http.StatusOK, gin.H{"message": "File deleted"})
}
