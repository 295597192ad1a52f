// Package azureopenai implements the embedding provider port against an
// Azure OpenAI embeddings deployment.
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	domainerrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
)

type Provider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// RequestsPerSecond bounds outbound calls client-side so candidate
	// fan-out cannot trip the deployment's rate limits. Zero disables.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

func New(opts Options) (*Provider, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("azureopenai: endpoint is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("azureopenai: api key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1)
	}

	return &Provider{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
		logger:   logger,
	}, nil
}

type embeddingRequest struct {
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("azureopenai: %w", err)
		}
	}

	body, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("azureopenai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("azureopenai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.logger.Warn("embedding deployment throttled",
			"event", "embedding_rate_limited",
			"module", "civic-reporting/duplicate-detection",
			"layer", "adapter",
		)
		return nil, domainerrors.ErrEmbeddingRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s",
			domainerrors.ErrEmbeddingUnavailable, resp.StatusCode, string(payload))
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domainerrors.ErrEmbeddingUnavailable, err)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding payload", domainerrors.ErrEmbeddingUnavailable)
	}
	return decoded.Data[0].Embedding, nil
}
