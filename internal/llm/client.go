package llm

import (
	"context"
	"time"
)

// Client is a text generation endpoint.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// GenerateOptions are the decoding parameters sent with every request.
type GenerateOptions struct {
	Stop        []string `json:"stop,omitempty"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict"`
	NumCtx      int      `json:"num_ctx"`
}

// GenerateRequest is a single non-streaming completion request.
type GenerateRequest struct {
	Model   string
	Prompt  string
	Options GenerateOptions
}

// GenerateResponse holds the raw completion text.
type GenerateResponse struct {
	Model         string
	Response      string
	TotalDuration time.Duration
	Done          bool
}

// ModelInfo describes a model advertised by the endpoint.
type ModelInfo struct {
	ModifiedAt time.Time `json:"modified_at"`
	Name       string    `json:"name"`
	Digest     string    `json:"digest,omitempty"`
	Size       int64     `json:"size"`
}
