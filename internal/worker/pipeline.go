package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipforge/ffdispatch/internal/command"
	"github.com/clipforge/ffdispatch/internal/fetch"
	"github.com/clipforge/ffdispatch/internal/job"
	"github.com/clipforge/ffdispatch/internal/storage"
)

// Executor is the subset of the ffmpeg engine the pipelines use.
type Executor interface {
	Available() bool
	Run(ctx context.Context, commandLine string) (bool, string)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ConcatFiles(ctx context.Context, listPath, dest string) error
	LoopMerge(ctx context.Context, videoPath, audioPath, dest string, duration float64) error
}

// Pipelines bundles the collaborators the built-in job handlers need.
type Pipelines struct {
	logger    *slog.Logger
	fetcher   fetch.Fetcher
	store     storage.BlobStore
	executor  Executor
	keyPrefix string
}

// NewPipelines creates the built-in pipeline set.
func NewPipelines(logger *slog.Logger, fetcher fetch.Fetcher, store storage.BlobStore, executor Executor, keyPrefix string) *Pipelines {
	if keyPrefix == "" {
		keyPrefix = "ffmpeg-outputs"
	}
	return &Pipelines{
		logger:    logger,
		fetcher:   fetcher,
		store:     store,
		executor:  executor,
		keyPrefix: keyPrefix,
	}
}

// HandlerTable returns the job-type -> handler mapping for the pool.
// Built once at startup and injected into the pool constructor.
func (p *Pipelines) HandlerTable() map[string]Handler {
	return map[string]Handler{
		job.TypeTranscode:       p.Transcode,
		job.TypeMergeAudioVideo: p.MergeAudioVideo,
	}
}

// Transcode is the generic pipeline: fetch every input into the working
// area, render the command against the local paths, run it, and upload
// each produced output.
func (p *Pipelines) Transcode(ctx context.Context, j *job.Job, workDir string) (map[string]string, error) {
	if !p.executor.Available() {
		return nil, job.ErrToolUnavailable
	}

	localInputs, err := p.fetchInputs(ctx, j.Inputs, workDir)
	if err != nil {
		return nil, err
	}

	localOutputs := job.FileMap{}
	for _, e := range j.Outputs {
		localOutputs.Set(e.Key, filepath.Join(workDir, filepath.Base(e.Path)))
	}

	rendered := command.Render(j.Command, localInputs, localOutputs)
	p.logger.Debug("Rendered command",
		slog.String("job_id", j.ID),
		slog.String("command", rendered),
	)

	ok, diagnostic := p.executor.Run(ctx, rendered)
	if !ok {
		return nil, &job.ExecError{Diagnostic: diagnostic}
	}

	outputURLs := make(map[string]string, j.Outputs.Len())
	for i, e := range j.Outputs {
		url, err := p.store.Store(ctx, localOutputs[i].Path, p.objectKey(j.ID, e.Path))
		if err != nil {
			return nil, &job.UploadError{Key: e.Key, Err: err}
		}
		outputURLs[e.Key] = url
	}
	return outputURLs, nil
}

// MergeAudioVideo is the composite pipeline: concatenate the audio
// inputs into one track, probe its duration, and loop the "video" input
// against it so the result matches the audio length.
func (p *Pipelines) MergeAudioVideo(ctx context.Context, j *job.Job, workDir string) (map[string]string, error) {
	if !p.executor.Available() {
		return nil, job.ErrToolUnavailable
	}

	videoURL, ok := j.Inputs.Get("video")
	if !ok {
		return nil, fmt.Errorf("merge job requires a %q input", "video")
	}
	if j.Outputs.Len() == 0 {
		return nil, fmt.Errorf("merge job requires an output entry")
	}

	videoLocal := filepath.Join(workDir, "loop_video.mp4")
	if err := p.fetcher.Fetch(ctx, videoURL, videoLocal); err != nil {
		return nil, &job.FetchError{Key: "video", Source: videoURL, Err: err}
	}

	var audioLocals []string
	for _, e := range j.Inputs {
		if e.Key == "video" {
			continue
		}
		dest := filepath.Join(workDir, fmt.Sprintf("track_%03d.mp3", len(audioLocals)))
		if err := p.fetcher.Fetch(ctx, e.Path, dest); err != nil {
			return nil, &job.FetchError{Key: e.Key, Source: e.Path, Err: err}
		}
		audioLocals = append(audioLocals, dest)
	}
	if len(audioLocals) == 0 {
		return nil, fmt.Errorf("merge job requires at least one audio input")
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := writeConcatList(listPath, audioLocals); err != nil {
		return nil, err
	}

	mergedAudio := filepath.Join(workDir, "merged_audio.mp3")
	if err := p.executor.ConcatFiles(ctx, listPath, mergedAudio); err != nil {
		return nil, &job.ExecError{Diagnostic: err.Error()}
	}

	duration, err := p.executor.ProbeDuration(ctx, mergedAudio)
	if err != nil {
		return nil, &job.ExecError{Diagnostic: err.Error()}
	}

	out := j.Outputs[0]
	outputLocal := filepath.Join(workDir, filepath.Base(out.Path))
	if err := p.executor.LoopMerge(ctx, videoLocal, mergedAudio, outputLocal, duration); err != nil {
		return nil, &job.ExecError{Diagnostic: err.Error()}
	}

	url, err := p.store.Store(ctx, outputLocal, p.objectKey(j.ID, out.Path))
	if err != nil {
		return nil, &job.UploadError{Key: out.Key, Err: err}
	}
	return map[string]string{out.Key: url}, nil
}

// fetchInputs downloads every input in insertion order and returns the
// local path map used for placeholder resolution.
func (p *Pipelines) fetchInputs(ctx context.Context, inputs job.FileMap, workDir string) (job.FileMap, error) {
	local := job.FileMap{}
	for _, e := range inputs {
		dest := filepath.Join(workDir, filepath.Base(e.Key))
		if err := p.fetcher.Fetch(ctx, e.Path, dest); err != nil {
			return nil, &job.FetchError{Key: e.Key, Source: e.Path, Err: err}
		}
		local.Set(e.Key, dest)
	}
	return local, nil
}

func (p *Pipelines) objectKey(jobID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", p.keyPrefix, jobID, filepath.Base(filename))
}

// writeConcatList writes an ffmpeg concat-demuxer list file.
func writeConcatList(path string, files []string) error {
	var b []byte
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		b = append(b, fmt.Sprintf("file '%s'\n", abs)...)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}
