package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultOllamaHost     = "http://localhost:11434"
	DefaultEmbeddingModel = "nomic-embed-text"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	BaseURL string
	Model   string

	// Timeout bounds each HTTP round trip.
	Timeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration

	// RequestsPerSecond <= 0 disables client-side throttling.
	RequestsPerSecond float64
	Burst             int
}

// OllamaEmbedder encodes text through an Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	client  *api.Client
	model   string
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewOllamaEmbedder creates an embedder for the configured server and model.
func NewOllamaEmbedder(cfg OllamaConfig, logger *zap.Logger) (*OllamaEmbedder, error) {
	host := cfg.BaseURL
	if host == "" {
		host = DefaultOllamaHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q", host)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	backoff := cfg.RetryBaseDelay
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &OllamaEmbedder{
		client:  api.NewClient(base, &http.Client{Timeout: timeout}),
		model:   model,
		limiter: limiter,
		retries: max(cfg.MaxRetries, 0),
		backoff: backoff,
		logger:  logger,
	}, nil
}

// Model returns the embedding model name.
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// Embed encodes a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch encodes texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return []Embedding{}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	req := &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * e.backoff
			e.logger.Debug("retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("embedding cancelled after %d attempts: %w", attempt, lastErr)
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := e.client.Embed(ctx, req)
		if err == nil {
			return toEmbeddings(resp, len(texts))
		}

		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
	}

	return nil, fmt.Errorf("ollama embed failed after %d attempts: %w", e.retries+1, lastErr)
}

func toEmbeddings(resp *api.EmbedResponse, want int) ([]Embedding, error) {
	if len(resp.Embeddings) != want {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), want)
	}
	out := make([]Embedding, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("ollama returned an empty embedding for input %d", i)
		}
		vec := make(Embedding, len(v))
		for j, x := range v {
			vec[j] = float64(x)
		}
		out[i] = vec
	}
	return out, nil
}

// retryable reports whether err is a transient failure: a transport error,
// HTTP 429 or a 5xx status.
func retryable(err error) bool {
	var status api.StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= 500
	}
	var statusPtr *api.StatusError
	if errors.As(err, &statusPtr) {
		return statusPtr.StatusCode == http.StatusTooManyRequests || statusPtr.StatusCode >= 500
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
