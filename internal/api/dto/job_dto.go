package dto

import "github.com/clipforge/ffdispatch/internal/job"

// RegisterJobRequest is the payload for POST /api/v1/jobs.
//
// input_files maps input keys (like "in_1") to source URLs and
// output_files maps output keys (like "out_1") to destination filenames;
// both preserve the order keys appear in the document. job_type is
// optional and defaults to "transcode".
type RegisterJobRequest struct {
	FFmpegCommand string      `json:"ffmpeg_command" binding:"required"`
	InputFiles    job.FileMap `json:"input_files"`
	OutputFiles   job.FileMap `json:"output_files"`
	JobType       string      `json:"job_type"`
}

// JobResponse reports a job's identity and lifecycle state.
type JobResponse struct {
	JobID        string            `json:"job_id"`
	Status       string            `json:"status"`
	OutputURLs   map[string]string `json:"output_urls,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// NewJobResponse builds a response from a job record snapshot.
func NewJobResponse(j *job.Job) JobResponse {
	status, outputURLs, errDetail := j.Snapshot()
	return JobResponse{
		JobID:        j.ID,
		Status:       status,
		OutputURLs:   outputURLs,
		ErrorMessage: errDetail,
	}
}

// QueueSizeResponse reports the current pending count.
type QueueSizeResponse struct {
	QueueSize int `json:"queue_size"`
}
