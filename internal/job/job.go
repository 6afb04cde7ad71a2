package job

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job status constants
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Job type constants. TypeMergeAudioVideo selects the composite
// concat-and-loop pipeline instead of the generic transcode pipeline.
const (
	TypeTranscode       = "transcode"
	TypeMergeAudioVideo = "merge-audio-video"
)

// Job is the tracked unit of work. The producer-owned fields (ID, Type,
// Command, Inputs, Outputs) are immutable after creation. The lifecycle
// fields are written by exactly one worker and read concurrently by the
// status endpoint, so they are guarded by a mutex.
type Job struct {
	ID        string
	Type      string
	Command   string
	Inputs    FileMap
	Outputs   FileMap
	CreatedAt time.Time

	mu         sync.Mutex
	status     string
	outputURLs map[string]string
	errDetail  string
}

// New creates a pending job with a fresh UUID.
func New(jobType, command string, inputs, outputs FileMap) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Command:   command,
		Inputs:    inputs,
		Outputs:   outputs,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}
}

// Status returns the current lifecycle status.
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// MarkRunning transitions PENDING -> RUNNING. Terminal states are never
// re-entered.
func (j *Job) MarkRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusPending {
		j.status = StatusRunning
	}
}

// Complete transitions RUNNING -> COMPLETED and records the durable
// reference for each output key.
func (j *Job) Complete(outputURLs map[string]string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return
	}
	j.status = StatusCompleted
	j.outputURLs = outputURLs
}

// Fail transitions RUNNING -> FAILED and records the diagnostic.
func (j *Job) Fail(detail string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusCompleted || j.status == StatusFailed {
		return
	}
	j.status = StatusFailed
	j.errDetail = detail
}

// Snapshot returns a consistent view of the lifecycle fields for the
// status endpoint. The returned map is a copy.
func (j *Job) Snapshot() (status string, outputURLs map[string]string, errDetail string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var urls map[string]string
	if j.outputURLs != nil {
		urls = make(map[string]string, len(j.outputURLs))
		for k, v := range j.outputURLs {
			urls[k] = v
		}
	}
	return j.status, urls, j.errDetail
}
