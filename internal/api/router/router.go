package router

import (
	"net/http"

	"github.com/clipforge/ffdispatch/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint; reports transcoding tool availability for
	// the liveness surface
	r.GET("/health", func(c *gin.Context) {
		ffmpegInstalled := "no"
		if deps.Prober != nil && deps.Prober.Available() {
			ffmpegInstalled = "yes"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"ffmpeg_installed": ffmpegInstalled,
		})
	})

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Register a new job
			jobs.POST("", jobHandler.RegisterJob)

			// GET /api/v1/jobs/:job_id - Get job status
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		// GET /api/v1/queue/size - Current pending count
		v1.GET("/queue/size", jobHandler.QueueSize)
	}

	return r
}
