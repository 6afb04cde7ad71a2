package job

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job ID is not in the registry
	ErrJobNotFound = errors.New("job not found")

	// ErrToolUnavailable is returned when ffmpeg cannot be resolved on
	// the execution environment's search path
	ErrToolUnavailable = errors.New("ffmpeg is not installed on the system")

	// ErrUnknownJobType is returned when no handler is registered for a
	// job's type
	ErrUnknownJobType = errors.New("no handler registered for job type")
)

// FetchError reports an input that could not be retrieved. It aborts the
// pipeline before the command is rendered.
type FetchError struct {
	Key    string
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch input %q from %s: %v", e.Key, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExecError reports a nonzero exit or spawn failure from ffmpeg. The
// diagnostic is attached to the job record verbatim.
type ExecError struct {
	Diagnostic string
}

func (e *ExecError) Error() string {
	return e.Diagnostic
}

// UploadError reports an output that was produced locally but could not
// be persisted to durable storage.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload output %q: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
