package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaylee-dev/media-toolbox/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "media-toolbox-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	sttHandler := handler.NewSTTHandler(deps)
	translateHandler := handler.NewTranslateHandler(deps)
	releaseNoteHandler := handler.NewReleaseNoteHandler(deps)
	fileHandler := handler.NewFileHandler(deps)

	api := r.Group("/api")
	{
		jobs := api.Group("/jobs")
		{
			// GET /api/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/jobs/:id - Get job details
			jobs.GET("/:id", jobHandler.GetJob)

			// POST /api/jobs/:id/cancel - Cancel a job
			jobs.POST("/:id/cancel", jobHandler.CancelJob)

			// DELETE /api/jobs/:id - Delete a job and its output artifacts
			jobs.DELETE("/:id", jobHandler.DeleteJob)
		}

		// POST /api/stt - Start a speech-to-text job
		api.POST("/stt", sttHandler.CreateSTT)

		translateGroup := api.Group("/translate")
		{
			// POST /api/translate - Start an async translation job
			translateGroup.POST("", translateHandler.CreateTranslation)

			// POST /api/translate/simple - Translate inline text synchronously
			translateGroup.POST("/simple", translateHandler.SimpleTranslation)

			// POST /api/translate/file - Translate an uploaded file synchronously
			translateGroup.POST("/file", translateHandler.FileTranslation)

			// GET/POST /api/translate/template - Read or replace the prompt template
			translateGroup.GET("/template", translateHandler.GetTemplate)
			translateGroup.POST("/template", translateHandler.SaveTemplate)
		}

		releaseNote := api.Group("/release-note")
		{
			// POST /api/release-note/convert - Convert change notes to a release note
			releaseNote.POST("/convert", releaseNoteHandler.Convert)

			// GET/POST /api/release-note/template - Read or replace the prompt template
			releaseNote.GET("/template", releaseNoteHandler.GetTemplate)
			releaseNote.POST("/template", releaseNoteHandler.SaveTemplate)
		}

		files := api.Group("/files")
		{
			// GET /api/files - List stored artifacts
			files.GET("", fileHandler.ListFiles)

			// POST /api/files - Upload a file
			files.POST("", fileHandler.UploadFile)

			// GET /api/files/:name/view - Return content as {content} JSON
			files.GET("/:name/view", fileHandler.ViewFile)

			// GET /api/files/:name/download - Download as attachment
			files.GET("/:name/download", fileHandler.DownloadFile)

			// DELETE /api/files/:name - Delete a stored file
			files.DELETE("/:name", fileHandler.DeleteFile)
		}
	}

	return r
}
