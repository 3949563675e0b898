package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/cardwise/internal/common"
)

// OllamaClient talks to an Ollama server over its REST API.
type OllamaClient struct {
	httpClient *http.Client
	limiter    *rateLimiter
	logger     *slog.Logger
	baseURL    string
	retry      common.RetryOptions
	mu         sync.RWMutex
}

// NewOllamaClient creates a client for cfg.OllamaURL.
func NewOllamaClient(cfg Config, logger *slog.Logger) (*OllamaClient, error) {
	if strings.TrimSpace(cfg.OllamaURL) == "" {
		return nil, fmt.Errorf("%w: ollama url is required", common.ErrMissingConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	logger = common.LoggerOrDefault(logger)
	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.OllamaURL, "/"),
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
		retry: common.RetryOptions{
			Logger:       logger,
			MaxAttempts:  attempts,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     10 * time.Second,
		},
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// BaseURL returns the server the client currently targets.
func (c *OllamaClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at a different server.
func (c *OllamaClient) SetBaseURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(url, "/")
}

type ollamaGenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Options GenerateOptions `json:"options"`
	Stream  bool            `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	TotalDuration int64  `json:"total_duration"`
	Done          bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Generate sends a non-streaming completion request to /api/generate.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: req.Options,
	})
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := common.RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var result GenerateResponse
	err = common.WithRetry(ctx, func() error {
		if waitErr := c.limiter.wait(ctx); waitErr != nil {
			return &common.RetryableError{Err: waitErr, Retryable: false}
		}

		payload, doErr := c.do(ctx, http.MethodPost, "/api/generate", body, requestID)
		if doErr != nil {
			return doErr
		}

		var resp ollamaGenerateResponse
		if decodeErr := json.Unmarshal(payload, &resp); decodeErr != nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: failed to parse generate response: %w", common.ErrLLMResponseFormat, decodeErr),
				Retryable: false,
			}
		}

		result = GenerateResponse{
			Model:         resp.Model,
			Response:      resp.Response,
			TotalDuration: time.Duration(resp.TotalDuration),
			Done:          resp.Done,
		}
		return nil
	}, c.retry)
	if err != nil {
		return GenerateResponse{}, err
	}

	c.logger.Debug("Ollama generate completed",
		"request_id", requestID,
		"model", result.Model,
		"duration", result.TotalDuration)

	return result, nil
}

// ListModels returns the models advertised by /api/tags.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	payload, err := c.do(ctx, http.MethodGet, "/api/tags", nil, uuid.NewString())
	if err != nil {
		return nil, err
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(payload, &tags); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tags response: %w", common.ErrLLMResponseFormat, err)
	}
	return tags.Models, nil
}

func (c *OllamaClient) do(ctx context.Context, method, path string, body []byte, requestID string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		retryable := !errors.Is(err, context.Canceled)
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: request failed: %w", common.ErrLLMUnavailable, err),
			Retryable: retryable,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", common.ErrLLMUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: Ollama API error (status %d): %s",
			common.ErrLLMUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
		if resp.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", common.ErrRateLimit, err)
		}
		return nil, &common.RetryableError{
			Err:       err,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
		}
	}

	return payload, nil
}
