package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/jaylee-dev/media-toolbox/internal/stt"
	"github.com/jaylee-dev/media-toolbox/internal/worker/domain"
)

// jobTracker is the progress/status surface executors need. Narrow so
// executor tests can fake it.
type jobTracker interface {
	GetStatus(ctx context.Context, jobID string) (string, error)
	UpdateProgress(ctx context.Context, jobID string, percent int) error
}

// sttPipeline is the transcription surface the executor depends on.
type sttPipeline interface {
	Title(ctx context.Context, url string) string
	Run(ctx context.Context, req stt.Request) (*stt.Result, error)
}

// Stage progress markers. The pipeline cannot report finer granularity, so
// progress jumps per stage.
const (
	sttProgressDownloading  = 10
	sttProgressTranscribing = 50
	sttProgressUploading    = 90
)

type sttExecutor struct {
	pipeline  sttPipeline
	tracker   jobTracker
	artifacts *artifact.Store
	logger    *slog.Logger
}

func newSTTExecutor(pipeline sttPipeline, tracker jobTracker, artifacts *artifact.Store, logger *slog.Logger) *sttExecutor {
	return &sttExecutor{
		pipeline:  pipeline,
		tracker:   tracker,
		artifacts: artifacts,
		logger:    logger,
	}
}

// Execute downloads the video audio and transcribes it. Cancellation is
// checked at each stage boundary; a running external command is aborted
// through its context.
func (e *sttExecutor) Execute(ctx context.Context, job *domain.Job) (map[string]string, error) {
	var p payload.STT
	if err := payload.Decode(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if p.URL == "" {
		return nil, fmt.Errorf("%w: missing url", domain.ErrInvalidPayload)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var cancelled atomic.Bool
	onStage := func(stage stt.Stage) {
		percent := sttProgressDownloading
		if stage == stt.StageTranscribing {
			percent = sttProgressTranscribing
		}

		if status, err := e.tracker.GetStatus(ctx, job.JobID); err == nil && status == domain.JobStatusCancelled {
			cancelled.Store(true)
			cancelRun()
			return
		}

		if err := e.tracker.UpdateProgress(ctx, job.JobID, percent); err != nil {
			e.logger.Warn("Failed to update progress",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
		}
	}

	title := e.pipeline.Title(runCtx, p.URL)

	result, err := e.pipeline.Run(runCtx, stt.Request{
		URL:     p.URL,
		Model:   p.Model,
		OnStage: onStage,
	})
	if cancelled.Load() {
		return nil, domain.ErrJobCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("transcription pipeline failed: %w", err)
	}
	defer result.Cleanup()

	shortID := job.JobID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	audioName := fmt.Sprintf("%s_%s.mp3", title, shortID)
	transcriptName := fmt.Sprintf("%s_%s.txt", title, shortID)

	if status, statusErr := e.tracker.GetStatus(ctx, job.JobID); statusErr == nil && status == domain.JobStatusCancelled {
		return nil, domain.ErrJobCancelled
	}

	if err := e.tracker.UpdateProgress(ctx, job.JobID, sttProgressUploading); err != nil {
		e.logger.Warn("Failed to update progress",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := e.artifacts.PutFile(result.AudioPath, audioName); err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}
	if _, err := e.artifacts.PutBytes(transcriptName, []byte(result.Transcript)); err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}

	e.logger.Info("Transcription stored",
		slog.String("job_id", job.JobID),
		slog.String("transcript", transcriptName),
	)

	return map[string]string{
		"audio":      audioName,
		"transcript": transcriptName,
	}, nil
}
