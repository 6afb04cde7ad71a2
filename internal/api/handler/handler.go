package handler

import (
	"log/slog"

	"github.com/clipforge/ffdispatch/internal/job"
	"github.com/clipforge/ffdispatch/internal/queue"
)

// ToolProber reports whether the transcoding tool is available. Used by
// the health endpoint only, never by the job pipeline.
type ToolProber interface {
	Available() bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Registry *job.Registry
	Queue    *queue.Queue
	Prober   ToolProber
	// JobTypes is the set of job types the worker pool has handlers
	// for; registration rejects anything else.
	JobTypes []string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	registry *job.Registry
	queue    *queue.Queue
	jobTypes map[string]struct{}
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	jobTypes := make(map[string]struct{}, len(deps.JobTypes))
	for _, t := range deps.JobTypes {
		jobTypes[t] = struct{}{}
	}
	return &JobHandler{
		logger:   deps.Logger,
		registry: deps.Registry,
		queue:    deps.Queue,
		jobTypes: jobTypes,
	}
}
