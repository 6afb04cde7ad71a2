package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/clipforge/ffdispatch/internal/api/dto"
	"github.com/clipforge/ffdispatch/internal/job"
	"github.com/gin-gonic/gin"
)

// RegisterJob handles POST /api/v1/jobs
// Creates a job record, stores it, and enqueues it for background
// processing. Returns immediately with the job identifier and PENDING.
func (h *JobHandler) RegisterJob(c *gin.Context) {
	var req dto.RegisterJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	// A job with nothing to produce never reaches the queue.
	if req.OutputFiles.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No output_files provided",
		})
		return
	}

	jobType := req.JobType
	if jobType == "" {
		jobType = job.TypeTranscode
	}
	// Back compatibility: older producers selected the composite
	// pipeline by sending its name as the command.
	if req.FFmpegCommand == job.TypeMergeAudioVideo {
		jobType = job.TypeMergeAudioVideo
	}
	if _, ok := h.jobTypes[jobType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown job_type: " + jobType,
		})
		return
	}

	j := job.New(jobType, req.FFmpegCommand, req.InputFiles, req.OutputFiles)
	h.registry.Add(j)
	h.queue.Enqueue(j)

	h.logger.Info("Job registered",
		slog.String("job_id", j.ID),
		slog.String("job_type", j.Type),
		slog.Int("inputs", j.Inputs.Len()),
		slog.Int("outputs", j.Outputs.Len()),
	)

	c.JSON(http.StatusOK, dto.NewJobResponse(j))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the job's current status, and its output URLs or error detail
// once it reached a terminal state.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	j, err := h.registry.Get(jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(j))
}

// QueueSize handles GET /api/v1/queue/size
func (h *JobHandler) QueueSize(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QueueSizeResponse{
		QueueSize: h.queue.Size(),
	})
}
