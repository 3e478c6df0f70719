// Package llamaserver provides an inference engine adapter backed by a
// llama.cpp server process. Token pieces arrive over the server's
// streaming completion endpoint.
package llamaserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.Engine = (*Engine)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultPingTimeout = 5 * time.Second
)

// Config holds configuration for the llama server engine.
type Config struct {
	// BaseURL is the llama server base URL (default: http://localhost:8080).
	BaseURL string
}

// Engine streams completions from a llama.cpp server. The server owns
// the loaded model; Create validates that the requested model file
// exists and that the server answers health checks.
type Engine struct {
	client  *http.Client
	baseURL string
	mu      sync.Mutex
	handles map[*handle]struct{}
}

// handle records the model and thread count a caller created.
type handle struct {
	modelPath string
	threads   int
}

// completionRequest is the llama server /completion request format.
type completionRequest struct {
	Prompt      string `json:"prompt"`
	NPredict    int    `json:"n_predict"`
	Stream      bool   `json:"stream"`
	CachePrompt bool   `json:"cache_prompt"`
	NThreads    int    `json:"n_threads,omitempty"`
}

// completionChunk is one streamed /completion event payload.
type completionChunk struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

// New creates a llama server engine.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return &Engine{
		// Streaming responses have no bounded duration; cancellation
		// comes from the request context instead of a client timeout.
		client:  &http.Client{},
		baseURL: cfg.BaseURL,
		handles: make(map[*handle]struct{}),
	}
}

// Create validates the model file and server, returning a handle.
func (e *Engine) Create(ctx context.Context, modelPath string, threads int) (driven.Handle, error) {
	info, err := os.Stat(modelPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("model file %s: %w", modelPath, domain.ErrModelUnavailable)
	}

	if err := e.ping(ctx); err != nil {
		return nil, fmt.Errorf("llama server: %w", err)
	}

	h := &handle{modelPath: modelPath, threads: threads}
	e.mu.Lock()
	e.handles[h] = struct{}{}
	e.mu.Unlock()

	logger.Debug("created inference handle for %s (threads=%d)", modelPath, threads)
	return h, nil
}

// GenerateStream runs a streaming completion, invoking onToken for each
// content piece until the server signals a stop condition.
func (e *Engine) GenerateStream(ctx context.Context, h driven.Handle, prompt string, maxTokens int, onToken func(piece string)) error {
	hd, ok := h.(*handle)
	if !ok || hd == nil {
		return domain.ErrEngineUnavailable
	}

	reqBody := completionRequest{
		Prompt:      prompt,
		NPredict:    maxTokens,
		Stream:      true,
		CachePrompt: false,
		NThreads:    hd.threads,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/completion",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("llama server error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("llama server error (status %d): %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Content != "" {
			onToken(chunk.Content)
		}
		if chunk.Stop {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation surfaces as a read error on the body.
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read stream: %w", err)
	}

	return nil
}

// ClearCache is a no-op: completions run with prompt caching disabled,
// so the server retains no KV state between requests.
func (e *Engine) ClearCache(h driven.Handle) error {
	if _, ok := h.(*handle); !ok {
		return domain.ErrEngineUnavailable
	}
	return nil
}

// Destroy releases the handle. The server keeps its model loaded.
func (e *Engine) Destroy(h driven.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return domain.ErrEngineUnavailable
	}

	e.mu.Lock()
	delete(e.handles, hd)
	e.mu.Unlock()
	return nil
}

// ping validates the server is reachable via the /health endpoint.
func (e *Engine) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
