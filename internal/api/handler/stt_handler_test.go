package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jaylee-dev/media-toolbox/internal/api/domain"
	"github.com/jaylee-dev/media-toolbox/internal/api/dto"
	"github.com/jaylee-dev/media-toolbox/internal/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSTT(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/stt", dto.CreateSTTRequest{
		URL:   "https://youtube.com/watch?v=abc",
		Model: "large-v3",
	})

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[dto.JobDTO](t, w)
	assert.Equal(t, domain.JobTypeSTT, got.Type)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, "https://youtube.com/watch?v=abc", got.YoutubeURL)

	// The row carries the decoded payload for the worker
	job, err := env.store.GetJobByID(context.Background(), got.ID)
	require.NoError(t, err)
	var p payload.STT
	require.NoError(t, payload.Decode(job.Payload, &p))
	assert.Equal(t, "https://youtube.com/watch?v=abc", p.URL)
	assert.Equal(t, "large-v3", p.Model)

	// The queue message identifies the job; the worker loads the rest
	require.Len(t, env.publisher.published, 1)
	var msg queueMessage
	require.NoError(t, json.Unmarshal(env.publisher.published[0], &msg))
	assert.Equal(t, got.ID, msg.JobID)
	assert.Equal(t, domain.JobTypeSTT, msg.JobType)
}

func TestCreateSTT_InvalidURL(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		url  string
	}{
		{"not a url", "not a url"},
		{"unsupported scheme", "ftp://example.com/video"},
		{"missing host", "https:///watch"},
		{"relative path", "/watch?v=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(t, http.MethodPost, "/api/stt", dto.CreateSTTRequest{URL: tt.url})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, env.publisher.published)
		})
	}
}

func TestCreateSTT_MissingURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/stt", map[string]string{"model": "base"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSTT_PublishFailureMarksJobFailed(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker unavailable")

	w := env.doJSON(t, http.MethodPost, "/api/stt", dto.CreateSTTRequest{
		URL: "https://youtube.com/watch?v=abc",
	})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The pending row was marked failed instead of lingering forever
	require.Len(t, env.store.markFailedCalls, 1)
	for _, msg := range env.store.markFailedCalls {
		assert.Equal(t, "failed to enqueue job", msg)
	}
}
