package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/llm"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
	"github.com/jaylee-dev/media-toolbox/internal/worker/domain"
)

// translator is the pipeline surface the executor depends on.
type translator interface {
	Run(ctx context.Context, req translate.Request, cb translate.Callbacks) (string, error)
}

type translateExecutor struct {
	pipeline  translator
	tracker   jobTracker
	artifacts *artifact.Store
	templates *template.Store
	logger    *slog.Logger
}

func newTranslateExecutor(pipeline translator, tracker jobTracker, artifacts *artifact.Store, templates *template.Store, logger *slog.Logger) *translateExecutor {
	return &translateExecutor{
		pipeline:  pipeline,
		tracker:   tracker,
		artifacts: artifacts,
		templates: templates,
		logger:    logger,
	}
}

// Execute reads the input artifact and runs the chunked translation. The
// pipeline polls job status between chunks; a cancel stops it there.
func (e *translateExecutor) Execute(ctx context.Context, job *domain.Job) (map[string]string, error) {
	var p payload.Translate
	if err := payload.Decode(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if p.InputFile == "" || p.TargetLang == "" || p.APIURL == "" || p.Model == "" {
		return nil, fmt.Errorf("%w: input_file, target_lang, api_url and model are required", domain.ErrInvalidPayload)
	}

	text, err := e.artifacts.ReadString(p.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %q: %w", p.InputFile, err)
	}

	tmpl := e.templates.Get()
	if p.SystemPrompt != "" {
		tmpl.SystemPrompt = p.SystemPrompt
	}

	translated, err := e.pipeline.Run(ctx, translate.Request{
		Endpoint: llm.Endpoint{
			BaseURL:  p.APIURL,
			APIKey:   p.APIKey,
			Model:    p.Model,
			Provider: p.Provider,
		},
		Template:   tmpl,
		Text:       text,
		TargetLang: p.TargetLang,
		SrcLang:    p.SrcLang,
	}, translate.Callbacks{
		Progress: func(percent int) {
			if err := e.tracker.UpdateProgress(ctx, job.JobID, percent); err != nil {
				e.logger.Warn("Failed to update progress",
					slog.String("job_id", job.JobID),
					slog.String("error", err.Error()),
				)
			}
		},
		Cancelled: func() bool {
			status, err := e.tracker.GetStatus(ctx, job.JobID)
			return err == nil && status == domain.JobStatusCancelled
		},
	})

	if errors.Is(err, translate.ErrCancelled) {
		return nil, domain.ErrJobCancelled
	}
	if err != nil {
		return nil, err
	}

	outputName := fmt.Sprintf("translation_%s.txt", job.JobID)
	if _, err := e.artifacts.PutBytes(outputName, []byte(translated)); err != nil {
		return nil, fmt.Errorf("failed to store translation: %w", err)
	}

	e.logger.Info("Translation stored",
		slog.String("job_id", job.JobID),
		slog.String("output", outputName),
	)

	return map[string]string{"translation": outputName}, nil
}
