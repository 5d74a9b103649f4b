package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/jaylee-dev/media-toolbox/internal/stt"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
	"github.com/jaylee-dev/media-toolbox/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	status   string
	progress []int
}

func (f *fakeTracker) GetStatus(_ context.Context, _ string) (string, error) {
	return f.status, nil
}

func (f *fakeTracker) UpdateProgress(_ context.Context, _ string, percent int) error {
	f.progress = append(f.progress, percent)
	return nil
}

type fakeSTTPipeline struct {
	title  string
	result *stt.Result
	err    error
}

func (f *fakeSTTPipeline) Title(_ context.Context, _ string) string {
	return f.title
}

func (f *fakeSTTPipeline) Run(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if req.OnStage != nil {
		req.OnStage(stt.StageDownloading)
		req.OnStage(stt.StageTranscribing)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.result, f.err
}

type fakeTranslatePipeline struct {
	req        translate.Request
	out        string
	err        error
	progresses []int
}

func (f *fakeTranslatePipeline) Run(_ context.Context, req translate.Request, cb translate.Callbacks) (string, error) {
	f.req = req
	if cb.Cancelled != nil && cb.Cancelled() {
		return "", translate.ErrCancelled
	}
	for _, percent := range f.progresses {
		if cb.Progress != nil {
			cb.Progress(percent)
		}
	}
	return f.out, f.err
}

func newTestArtifacts(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func sttJob(t *testing.T, p payload.STT) *domain.Job {
	t.Helper()
	body, err := payload.Encode(p)
	require.NoError(t, err)
	return &domain.Job{
		JobID:   "11112222-3333-4444-5555-666677778888",
		JobType: domain.JobTypeSTT,
		Payload: body,
		Status:  domain.JobStatusProcessing,
	}
}

func translateJob(t *testing.T, p payload.Translate) *domain.Job {
	t.Helper()
	body, err := payload.Encode(p)
	require.NoError(t, err)
	return &domain.Job{
		JobID:   "aaaabbbb-cccc-dddd-eeee-ffff00001111",
		JobType: domain.JobTypeTranslate,
		Payload: body,
		Status:  domain.JobStatusProcessing,
	}
}

func TestSTTExecutor_Execute_Success(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("mp3 bytes"), 0o644))

	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	artifacts := newTestArtifacts(t)
	pipeline := &fakeSTTPipeline{
		title: "My_Video",
		result: &stt.Result{
			AudioPath:  audioPath,
			Transcript: "hello transcript",
		},
	}

	executor := newSTTExecutor(pipeline, tracker, artifacts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	outputs, err := executor.Execute(context.Background(), sttJob(t, payload.STT{
		URL: "https://youtube.com/watch?v=abc",
	}))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"audio":      "My_Video_11112222.mp3",
		"transcript": "My_Video_11112222.txt",
	}, outputs)

	content, err := artifacts.ReadString("My_Video_11112222.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello transcript", content)
	assert.True(t, artifacts.Exists("My_Video_11112222.mp3"))

	// Progress per stage plus the upload marker
	assert.Equal(t, []int{sttProgressDownloading, sttProgressTranscribing, sttProgressUploading}, tracker.progress)
}

func TestSTTExecutor_Execute_InvalidPayload(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	executor := newSTTExecutor(&fakeSTTPipeline{}, tracker, newTestArtifacts(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := sttJob(t, payload.STT{})
	job.Payload = "{not json"
	_, err := executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = executor.Execute(context.Background(), sttJob(t, payload.STT{URL: ""}))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestSTTExecutor_Execute_CancelledMidRun(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusCancelled}
	executor := newSTTExecutor(&fakeSTTPipeline{title: "vid"}, tracker, newTestArtifacts(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := executor.Execute(context.Background(), sttJob(t, payload.STT{
		URL: "https://youtube.com/watch?v=abc",
	}))

	require.ErrorIs(t, err, domain.ErrJobCancelled)
	assert.Empty(t, tracker.progress)
}

func TestSTTExecutor_Execute_PipelineFailure(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	executor := newSTTExecutor(&fakeSTTPipeline{
		title: "vid",
		err:   errors.New("download failed"),
	}, tracker, newTestArtifacts(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := executor.Execute(context.Background(), sttJob(t, payload.STT{
		URL: "https://youtube.com/watch?v=abc",
	}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "download failed")
	assert.NotErrorIs(t, err, domain.ErrJobCancelled)
}

func newTranslateExecutorForTest(t *testing.T, pipeline translator, tracker jobTracker, artifacts *artifact.Store) *translateExecutor {
	t.Helper()
	templates := template.NewStore(
		filepath.Join(t.TempDir(), "template.json"),
		template.DefaultTranslation,
		template.TextPlaceholder,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return newTranslateExecutor(pipeline, tracker, artifacts, templates, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTranslateExecutor_Execute_Success(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	artifacts := newTestArtifacts(t)
	_, err := artifacts.PutBytes("input.txt", []byte("source text"))
	require.NoError(t, err)

	pipeline := &fakeTranslatePipeline{out: "translated text", progresses: []int{50, 100}}
	executor := newTranslateExecutorForTest(t, pipeline, tracker, artifacts)

	outputs, err := executor.Execute(context.Background(), translateJob(t, payload.Translate{
		InputFile:  "input.txt",
		TargetLang: "Korean",
		APIURL:     "http://localhost:3000",
		Model:      "gpt-test",
		APIKey:     "key",
	}))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"translation": "translation_aaaabbbb-cccc-dddd-eeee-ffff00001111.txt",
	}, outputs)

	content, err := artifacts.ReadString(outputs["translation"])
	require.NoError(t, err)
	assert.Equal(t, "translated text", content)

	// Request was assembled from the payload
	assert.Equal(t, "source text", pipeline.req.Text)
	assert.Equal(t, "Korean", pipeline.req.TargetLang)
	assert.Equal(t, "http://localhost:3000", pipeline.req.Endpoint.BaseURL)
	assert.Equal(t, "gpt-test", pipeline.req.Endpoint.Model)
	assert.Equal(t, "key", pipeline.req.Endpoint.APIKey)

	assert.Equal(t, []int{50, 100}, tracker.progress)
}

func TestTranslateExecutor_Execute_SystemPromptOverride(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	artifacts := newTestArtifacts(t)
	_, err := artifacts.PutBytes("input.txt", []byte("text"))
	require.NoError(t, err)

	pipeline := &fakeTranslatePipeline{out: "ok"}
	executor := newTranslateExecutorForTest(t, pipeline, tracker, artifacts)

	_, err = executor.Execute(context.Background(), translateJob(t, payload.Translate{
		InputFile:    "input.txt",
		TargetLang:   "Korean",
		APIURL:       "http://localhost:3000",
		Model:        "m",
		SystemPrompt: "custom system prompt",
	}))

	require.NoError(t, err)
	assert.Equal(t, "custom system prompt", pipeline.req.Template.SystemPrompt)
	// The user prompt template stays the stored one
	assert.Equal(t, template.DefaultTranslation.UserPromptTemplate, pipeline.req.Template.UserPromptTemplate)
}

func TestTranslateExecutor_Execute_InvalidPayload(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	executor := newTranslateExecutorForTest(t, &fakeTranslatePipeline{}, tracker, newTestArtifacts(t))

	job := translateJob(t, payload.Translate{})
	job.Payload = "{broken"
	_, err := executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	// Missing required fields
	_, err = executor.Execute(context.Background(), translateJob(t, payload.Translate{
		InputFile: "input.txt",
	}))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestTranslateExecutor_Execute_MissingInputFile(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusProcessing}
	executor := newTranslateExecutorForTest(t, &fakeTranslatePipeline{}, tracker, newTestArtifacts(t))

	_, err := executor.Execute(context.Background(), translateJob(t, payload.Translate{
		InputFile:  "missing.txt",
		TargetLang: "Korean",
		APIURL:     "http://localhost:3000",
		Model:      "m",
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestTranslateExecutor_Execute_Cancelled(t *testing.T) {
	tracker := &fakeTracker{status: domain.JobStatusCancelled}
	artifacts := newTestArtifacts(t)
	_, err := artifacts.PutBytes("input.txt", []byte("text"))
	require.NoError(t, err)

	executor := newTranslateExecutorForTest(t, &fakeTranslatePipeline{out: "never"}, tracker, artifacts)

	_, err = executor.Execute(context.Background(), translateJob(t, payload.Translate{
		InputFile:  "input.txt",
		TargetLang: "Korean",
		APIURL:     "http://localhost:3000",
		Model:      "m",
	}))

	require.ErrorIs(t, err, domain.ErrJobCancelled)
	// No output artifact was written
	assert.False(t, artifacts.Exists("translation_aaaabbbb-cccc-dddd-eeee-ffff00001111.txt"))
}
