package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaylee-dev/media-toolbox/internal/api/domain"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translationParams() dto.LLMParams {
	return dto.LLMParams{
		Provider: "openai",
		APIURL:   "http://localhost:3000",
		APIKey:   "key",
		Model:    "gpt-test",
	}
}

func TestCreateTranslation_FromText(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/translate", dto.CreateTranslationRequest{
		Text:       "source text",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[dto.JobDTO](t, w)
	assert.Equal(t, domain.JobTypeTranslate, got.Type)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	// The text was persisted as an input artifact named after the job
	inputName := fmt.Sprintf("translate_input_%s.txt", got.ID)
	content, err := env.artifacts.ReadString(inputName)
	require.NoError(t, err)
	assert.Equal(t, "source text", content)

	job, err := env.store.GetJobByID(context.Background(), got.ID)
	require.NoError(t, err)
	var p payload.Translate
	require.NoError(t, payload.Decode(job.Payload, &p))
	assert.Equal(t, inputName, p.InputFile)
	assert.Equal(t, "Korean", p.TargetLang)
	assert.Equal(t, "http://localhost:3000", p.APIURL)
	assert.Equal(t, "gpt-test", p.Model)

	require.Len(t, env.publisher.published, 1)
}

func TestCreateTranslation_FromExistingFile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.artifacts.PutBytes("notes.txt", []byte("stored text"))
	require.NoError(t, err)

	w := env.doJSON(t, http.MethodPost, "/api/translate", dto.CreateTranslationRequest{
		InputFile:  "notes.txt",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[dto.JobDTO](t, w)
	assert.Equal(t, "notes.txt", got.Input)
}

func TestCreateTranslation_ExactlyOneSource(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  dto.CreateTranslationRequest
	}{
		{
			name: "neither",
			req: dto.CreateTranslationRequest{
				TargetLang: "Korean",
				LLMParams:  translationParams(),
			},
		},
		{
			name: "both",
			req: dto.CreateTranslationRequest{
				InputFile:  "notes.txt",
				Text:       "also text",
				TargetLang: "Korean",
				LLMParams:  translationParams(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(t, http.MethodPost, "/api/translate", tt.req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "exactly one")
		})
	}
}

func TestCreateTranslation_InputFileNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/translate", dto.CreateTranslationRequest{
		InputFile:  "missing.txt",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Input file not found")
}

func TestCreateTranslation_MissingRequiredFields(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/translate", map[string]string{
		"text": "source",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimpleTranslation(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(_ context.Context, _ translate.Request, cb translate.Callbacks) (string, error) {
		cb.Progress(100)
		return "번역된 텍스트", nil
	}

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:       "text to translate",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[dto.SimpleTranslationResponse](t, w)
	assert.Equal(t, "번역된 텍스트", resp.TranslatedText)
	assert.Equal(t, domain.JobStatusCompleted, resp.Job.Status)
	assert.Equal(t, 100, resp.Job.Progress)

	// Input and output both live in the artifact store
	outputName := resp.Job.Output["translation"]
	require.NotEmpty(t, outputName)
	content, err := env.artifacts.ReadString(outputName)
	require.NoError(t, err)
	assert.Equal(t, "번역된 텍스트", content)
	assert.True(t, env.artifacts.Exists(fmt.Sprintf("translate_input_%s.txt", resp.Job.ID)))

	// The pipeline saw the per-request endpoint
	assert.Equal(t, "http://localhost:3000", env.translator.lastReq.Endpoint.BaseURL)
	assert.Equal(t, "text to translate", env.translator.lastReq.Text)
	assert.Equal(t, "Korean", env.translator.lastReq.TargetLang)
}

func TestSimpleTranslation_SystemPromptOverride(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:         "text",
		TargetLang:   "Korean",
		SystemPrompt: "translate like a pirate",
		LLMParams:    translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "translate like a pirate", env.translator.lastReq.Template.SystemPrompt)
	assert.Equal(t, template.DefaultTranslation.UserPromptTemplate, env.translator.lastReq.Template.UserPromptTemplate)
}

func TestSimpleTranslation_CancelledMidRun(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(ctx context.Context, _ translate.Request, cb translate.Callbacks) (string, error) {
		// A concurrent cancel request lands between chunks
		for id := range env.store.jobs {
			require.NoError(t, env.store.CancelJob(ctx, id))
		}
		require.True(t, cb.Cancelled())
		return "", translate.ErrCancelled
	}

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:       "text",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[dto.SimpleTranslationResponse](t, w)
	assert.Empty(t, resp.TranslatedText)
	assert.Equal(t, domain.JobStatusCancelled, resp.Job.Status)
	assert.Empty(t, resp.Job.Output)
	assert.False(t, env.artifacts.Exists(fmt.Sprintf("translation_%s.txt", resp.Job.ID)))
}

func TestSimpleTranslation_CancelRacesFinalChunk(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(ctx context.Context, _ translate.Request, _ translate.Callbacks) (string, error) {
		// The cancel lands after the last chunk returned but before the
		// completion write; the cancellation must win.
		for id := range env.store.jobs {
			require.NoError(t, env.store.CancelJob(ctx, id))
		}
		return "late result", nil
	}

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:       "text",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[dto.SimpleTranslationResponse](t, w)
	assert.Empty(t, resp.TranslatedText)
	assert.Equal(t, domain.JobStatusCancelled, resp.Job.Status)
	assert.False(t, env.artifacts.Exists(fmt.Sprintf("translation_%s.txt", resp.Job.ID)))
}

func TestSimpleTranslation_PipelineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(_ context.Context, _ translate.Request, _ translate.Callbacks) (string, error) {
		return "", errors.New("all endpoint paths failed")
	}

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:       "text",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Translation failed")

	// The job row records the failure
	require.Len(t, env.store.jobs, 1)
	for _, job := range env.store.jobs {
		assert.Equal(t, domain.JobStatusFailed, job.Status)
	}
}

func TestSimpleTranslation_BadTemplate(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(_ context.Context, _ translate.Request, _ translate.Callbacks) (string, error) {
		return "", fmt.Errorf("render: %w", template.ErrMissingPlaceholder)
	}

	w := env.doJSON(t, http.MethodPost, "/api/translate/simple", dto.SimpleTranslationRequest{
		Text:       "text",
		TargetLang: "Korean",
		LLMParams:  translationParams(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func fileTranslationRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/translate/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFileTranslation(t *testing.T) {
	env := newTestEnv(t)
	env.translator.runFn = func(_ context.Context, _ translate.Request, _ translate.Callbacks) (string, error) {
		return "translated file", nil
	}

	req := fileTranslationRequest(t, "doc.md", "# original content", map[string]string{
		"api_url":     "http://localhost:3000",
		"model":       "gpt-test",
		"target_lang": "Korean",
	})
	w := env.do(t, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[dto.FileTranslationResponse](t, w)
	assert.Equal(t, "translated file", resp.TranslatedText)
	assert.Equal(t, "# original content", resp.OriginalText)
	assert.Equal(t, domain.JobStatusCompleted, resp.Job.Status)

	// Upload extension is preserved on the input artifact
	assert.True(t, env.artifacts.Exists(fmt.Sprintf("translate_input_%s.md", resp.Job.ID)))
}

func TestFileTranslation_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)

	req := fileTranslationRequest(t, "doc.pdf", "binary", map[string]string{
		"api_url":     "http://localhost:3000",
		"model":       "gpt-test",
		"target_lang": "Korean",
	})
	w := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ".txt and .md")
}

func TestFileTranslation_MissingParams(t *testing.T) {
	env := newTestEnv(t)

	req := fileTranslationRequest(t, "doc.txt", "content", map[string]string{
		"api_url": "http://localhost:3000",
	})
	w := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslateTemplate_GetAndSave(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodGet, "/api/translate/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[dto.TemplateRequest](t, w)
	assert.Equal(t, template.DefaultTranslation.SystemPrompt, got.SystemPrompt)

	w = env.doJSON(t, http.MethodPost, "/api/translate/template", dto.TemplateRequest{
		SystemPrompt:       "custom system",
		UserPromptTemplate: "custom {text}",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/translate/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeBody[dto.TemplateRequest](t, w)
	assert.Equal(t, "custom system", got.SystemPrompt)
	assert.Equal(t, "custom {text}", got.UserPromptTemplate)
}

func TestTranslateTemplate_SaveRejectsMissingPlaceholder(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/translate/template", dto.TemplateRequest{
		SystemPrompt:       "s",
		UserPromptTemplate: "no placeholder here",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "{text}")
}
