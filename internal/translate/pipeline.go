// Package translate implements the chunked translation pipeline: partition
// long text into bounded chunks, translate each through an LLM chat endpoint
// in order, and reassemble the output.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaylee-dev/media-toolbox/internal/llm"
	"github.com/jaylee-dev/media-toolbox/internal/template"
)

// translationTemperature keeps the model close to the source text.
const translationTemperature = 0.3

// ErrCancelled is returned when the job was cancelled between chunks. The
// caller must not record output or an error message for the job.
var ErrCancelled = errors.New("translation cancelled")

// ChatClient is the LLM call surface the pipeline depends on.
type ChatClient interface {
	Complete(ctx context.Context, ep llm.Endpoint, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Request carries everything one translation needs. SrcLang may be "auto",
// which is passed through to the template untouched.
type Request struct {
	Endpoint   llm.Endpoint
	Template   template.Template
	Text       string
	TargetLang string
	SrcLang    string
}

// Callbacks let the job layer observe progress and signal cancellation. Both
// fire only between chunk requests, the pipeline's sole suspension point.
type Callbacks struct {
	Progress  func(percent int)
	Cancelled func() bool
}

type Pipeline struct {
	client    ChatClient
	chunkSize int
	logger    *slog.Logger
}

func NewPipeline(client ChatClient, chunkSize int, logger *slog.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		client:    client,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Run translates req.Text chunk by chunk, strictly in order. Any chunk
// failure aborts the whole translation; a partial result is never returned.
func (p *Pipeline) Run(ctx context.Context, req Request, cb Callbacks) (string, error) {
	if err := req.Template.Validate(template.TextPlaceholder); err != nil {
		return "", err
	}

	if req.Text == "" {
		return "", nil
	}

	srcLang := req.SrcLang
	if srcLang == "" {
		srcLang = "auto"
	}

	chunks := Split(req.Text, p.chunkSize)
	total := len(chunks)

	p.logger.Info("Starting chunked translation",
		slog.Int("chunks", total),
		slog.Int("chunk_size", p.chunkSize),
		slog.String("target_lang", req.TargetLang),
		slog.String("model", req.Endpoint.Model),
	)

	parts := make([]string, 0, total)
	for i, chunk := range chunks {
		if cb.Cancelled != nil && cb.Cancelled() {
			p.logger.Info("Translation cancelled between chunks",
				slog.Int("completed_chunks", i),
				slog.Int("total_chunks", total),
			)
			return "", ErrCancelled
		}

		vars := map[string]string{
			"text":        chunk,
			"target_lang": req.TargetLang,
			"src_lang":    srcLang,
		}

		translated, err := p.client.Complete(
			ctx,
			req.Endpoint,
			req.Template.RenderSystem(vars),
			req.Template.RenderUser(vars),
			translationTemperature,
		)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d failed: %w", i+1, total, err)
		}

		parts = append(parts, translated)

		if cb.Progress != nil {
			cb.Progress((i + 1) * 100 / total)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
