package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cardwise/internal/common"
)

func TestOllamaClient_Generate(t *testing.T) {
	var captured ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "trace-1", r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"phi","response":"{\"bank\":\"HDFC\"}","done":true,"total_duration":5000000}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{OllamaURL: server.URL + "/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, client.BaseURL())

	ctx := common.WithRequestID(context.Background(), "trace-1")
	resp, err := client.Generate(ctx, GenerateRequest{
		Model:  "phi",
		Prompt: "extract",
		Options: GenerateOptions{
			Temperature: 0.1,
			TopP:        0.9,
			NumPredict:  150,
			NumCtx:      2048,
			Stop:        []string{"\n\n"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "phi", resp.Model)
	assert.Equal(t, `{"bank":"HDFC"}`, resp.Response)
	assert.True(t, resp.Done)
	assert.Equal(t, 5*time.Millisecond, resp.TotalDuration)

	assert.False(t, captured.Stream)
	assert.Equal(t, "extract", captured.Prompt)
	assert.Equal(t, 150, captured.Options.NumPredict)
	assert.Equal(t, []string{"\n\n"}, captured.Options.Stop)
}

func TestOllamaClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		maxRetries   int
		wantCalls    int32
		wantRetries  bool
		wantRateErr  bool
		wantContains string
	}{
		{name: "bad request is not retried", status: http.StatusBadRequest, maxRetries: 3, wantCalls: 1, wantContains: "status 400"},
		{name: "server error is retried", status: http.StatusInternalServerError, maxRetries: 2, wantCalls: 2, wantRetries: true, wantContains: "status 500"},
		{name: "rate limit", status: http.StatusTooManyRequests, maxRetries: 1, wantCalls: 1, wantRateErr: true, wantContains: "status 429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client, err := NewOllamaClient(Config{
				OllamaURL:  server.URL,
				MaxRetries: tt.maxRetries,
				RetryDelay: time.Millisecond,
			}, nil)
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), GenerateRequest{Model: "phi", Prompt: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrLLMUnavailable)
			assert.Contains(t, err.Error(), tt.wantContains)
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantRetries {
				assert.ErrorIs(t, err, common.ErrMaxRetries)
			}
			if tt.wantRateErr {
				assert.ErrorIs(t, err, common.ErrRateLimit)
			}
		})
	}
}

func TestOllamaClient_RecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"model":"phi","response":"{}","done":true}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{OllamaURL: server.URL, MaxRetries: 3, RetryDelay: time.Millisecond}, nil)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), GenerateRequest{Model: "phi", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Response)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOllamaClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{OllamaURL: server.URL, MaxRetries: 3}, nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), GenerateRequest{Model: "phi"})
	assert.ErrorIs(t, err, common.ErrLLMResponseFormat)

	_, err = client.ListModels(context.Background())
	assert.ErrorIs(t, err, common.ErrLLMResponseFormat)
}

func TestOllamaClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"models":[{"name":"phi:latest","size":1600000000,"digest":"abc","modified_at":"2025-07-01T10:00:00Z"}]}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{OllamaURL: server.URL}, nil)
	require.NoError(t, err)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "phi:latest", models[0].Name)
	assert.Equal(t, int64(1600000000), models[0].Size)
	assert.Equal(t, 2025, models[0].ModifiedAt.Year())
}

func TestOllamaClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{OllamaURL: server.URL, MaxRetries: 3}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, GenerateRequest{Model: "phi"})
	require.Error(t, err)
}
