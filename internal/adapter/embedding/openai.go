package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"smartkb/internal/domain"
)

// Client talks to any OpenAI-compatible /embeddings endpoint. The
// same client covers hosted APIs and a local Ollama server; only the
// base URL and credentials differ.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	http      *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Options configures a Client.
type Options struct {
	Model     string
	BaseURL   string
	APIKeyEnv string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// NewClient creates an embedder against an OpenAI-compatible API. The
// API key is read from the environment variable named in opts; Ollama
// endpoints accept any non-empty key.
func NewClient(opts Options) (*Client, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		if opts.APIKeyEnv != "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
		}
		apiKey = "local"
	}

	dimension := opts.Dimension
	if dimension == 0 {
		switch opts.Model {
		case "text-embedding-3-large":
			dimension = 3072
		case "nomic-embed-text":
			dimension = 768
		case "all-minilm":
			dimension = 384
		default:
			dimension = 1536
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:    apiKey,
		model:     opts.Model,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		dimension: dimension,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Initialize verifies the model is reachable, retrying with
// exponential backoff before giving up. Failure is fatal to the
// engine: there is no embedding-less fallback.
func (c *Client) Initialize(ctx context.Context, attempts int) error {
	err := WithRetry(ctx, attempts, time.Second, func(ctx context.Context) error {
		vectors, err := c.Embed(ctx, []string{"ping"})
		if err != nil {
			return err
		}
		c.dimension = len(vectors[0])
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return nil
}

// Embed encodes texts in batches, preserving input order. Empty or
// whitespace-only input is a caller bug and is rejected up front.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: input %d", domain.ErrEmptyText, i)
		}
	}

	var all [][]float32
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (body: %s): %w", truncate(string(body), 200), err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embeddings API error: %s", parsed.Error.Message)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range parsed.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embeddings API returned no vector for input %d", i)
		}
	}
	return vectors, nil
}

func (c *Client) Dimension() int    { return c.dimension }
func (c *Client) ModelName() string { return c.model }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
