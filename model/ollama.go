package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/metrics"
)

// OllamaConfig 是 Ollama 服务的连接配置。
type OllamaConfig struct {
	BaseURL    string        `koanf:"base_url" validate:"required,url"`
	Model      string        `koanf:"model" validate:"required"`
	EmbedModel string        `koanf:"embed_model" validate:"required"`
	Timeout    time.Duration `koanf:"timeout"`

	// BreakerFailures 连续失败多少次后熔断，BreakerTimeout 熔断后多久进入半开。
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// DefaultOllamaConfig 本机 Ollama，llama3.2 + nomic-embed-text。
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:         "http://localhost:11434",
		Model:           "llama3.2",
		EmbedModel:      "nomic-embed-text",
		Timeout:         30 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

const maxResponseBytes = 4 << 20

// OllamaClient 调用 Ollama 的 /api/generate 与 /api/embeddings，带熔断。
type OllamaClient struct {
	cfg    OllamaConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	def := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = def.EmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不算上游故障
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &OllamaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     cb,
	}
}

// Config 返回补全默认值后的配置。
func (c *OllamaClient) Config() OllamaConfig { return c.cfg }

// Generate 以非流式方式调用 /api/generate，返回模型的文本回答。
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, "generate", "/api/generate", map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", err
	}
	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", core.WrapDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "decode generate response", err)
	}
	return result.Response, nil
}

// Embed 调用 /api/embeddings 计算句向量。
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "embed: empty text")
	}
	body, err := c.post(ctx, "embeddings", "/api/embeddings", map[string]any{
		"model":  c.cfg.EmbedModel,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "decode embeddings response", err)
	}
	if len(result.Embedding) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "embed: empty embedding")
	}
	return result.Embedding, nil
}

func (c *OllamaClient) post(ctx context.Context, service, path string, reqBody any) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ollama %s: %w", service, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("ollama %s: read body: %w", service, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama %s: status=%d, body=%s", service, resp.StatusCode, truncate(string(data), 200))
		}
		return data, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.RecordUpstream(service, outcome)
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "ollama "+service, err)
	}
	metrics.RecordUpstream(service, "ok")
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
