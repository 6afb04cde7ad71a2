// Package ffmpeg invokes the external transcoding tool and captures its
// exit status and diagnostic output.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Executor runs ffmpeg and ffprobe commands.
type Executor struct {
	binary      string
	probeBinary string
}

// NewExecutor creates an executor for the given binaries. Empty values
// fall back to "ffmpeg" and "ffprobe" resolved on PATH.
func NewExecutor(binary, probeBinary string) *Executor {
	if binary == "" {
		binary = "ffmpeg"
	}
	if probeBinary == "" {
		probeBinary = "ffprobe"
	}
	return &Executor{binary: binary, probeBinary: probeBinary}
}

// Available reports whether the ffmpeg binary can be resolved on the
// search path. Used by the health endpoint and as the pre-flight check
// before any invocation.
func (e *Executor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Run executes a fully rendered command line through the shell, buffering
// both output streams. Success means exit code zero. On failure the
// diagnostic is the captured stderr if non-empty, else the captured
// stdout, else the spawn error. Run never propagates a fault to the
// caller.
func (e *Executor) Run(ctx context.Context, commandLine string) (bool, string) {
	if !e.Available() {
		return false, fmt.Sprintf("%s is not installed on the system", e.binary)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", commandLine)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false, fmt.Sprintf("failed to execute %s: %v", e.binary, err)
		}
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		if diag == "" {
			diag = err.Error()
		}
		return false, diag
	}

	return true, ""
}

// ProbeDuration returns the container duration of a media file in
// seconds, via ffprobe.
func (e *Executor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.CommandContext(ctx, e.probeBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparseable duration %q", path, strings.TrimSpace(stdout.String()))
	}
	return duration, nil
}

// ConcatFiles concatenates the media files named in a concat-demuxer list
// file into dest without re-encoding.
func (e *Executor) ConcatFiles(ctx context.Context, listPath, dest string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	return e.runArgs(ctx, args, "concat")
}

// LoopMerge loops the video input against the audio input, re-encoding
// and truncating the result to the given duration in seconds.
func (e *Executor) LoopMerge(ctx context.Context, videoPath, audioPath, dest string, duration float64) error {
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-shortest",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", strconv.FormatFloat(duration, 'f', -1, 64),
		dest,
	}
	return e.runArgs(ctx, args, "loop merge")
}

func (e *Executor) runArgs(ctx context.Context, args []string, step string) error {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", step, err, strings.TrimSpace(string(output)))
	}
	return nil
}
