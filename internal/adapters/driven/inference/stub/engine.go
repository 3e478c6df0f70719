// Package stub provides a scripted inference engine for tests and
// offline development.
package stub

import (
	"context"
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.Engine = (*Engine)(nil)

// Engine replays a fixed script of token pieces for every generation.
type Engine struct {
	mu sync.Mutex

	// Pieces is emitted in order on each GenerateStream call.
	Pieces []string

	// Err, when set, is returned from GenerateStream after the pieces.
	Err error

	// CreateErr, when set, is returned from Create.
	CreateErr error

	// Prompts records every prompt passed to GenerateStream.
	Prompts []string

	// MaxTokens records the budget of each GenerateStream call.
	MaxTokens []int

	// ClearCalls counts ClearCache invocations.
	ClearCalls int

	// DestroyCalls counts Destroy invocations.
	DestroyCalls int
}

// handle is the opaque token returned from Create.
type handle struct {
	modelPath string
	threads   int
}

// New creates a stub engine that emits the given pieces.
func New(pieces ...string) *Engine {
	return &Engine{Pieces: pieces}
}

// Create returns a scripted handle.
func (e *Engine) Create(_ context.Context, modelPath string, threads int) (driven.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	return &handle{modelPath: modelPath, threads: threads}, nil
}

// GenerateStream replays the scripted pieces through onToken.
func (e *Engine) GenerateStream(ctx context.Context, h driven.Handle, prompt string, maxTokens int, onToken func(piece string)) error {
	if _, ok := h.(*handle); !ok {
		return domain.ErrEngineUnavailable
	}

	e.mu.Lock()
	e.Prompts = append(e.Prompts, prompt)
	e.MaxTokens = append(e.MaxTokens, maxTokens)
	pieces := e.Pieces
	err := e.Err
	e.mu.Unlock()

	for _, piece := range pieces {
		if ctx.Err() != nil {
			return nil
		}
		onToken(piece)
	}

	return err
}

// ClearCache counts the call.
func (e *Engine) ClearCache(h driven.Handle) error {
	if _, ok := h.(*handle); !ok {
		return domain.ErrEngineUnavailable
	}
	e.mu.Lock()
	e.ClearCalls++
	e.mu.Unlock()
	return nil
}

// Destroy counts the call.
func (e *Engine) Destroy(h driven.Handle) error {
	if _, ok := h.(*handle); !ok {
		return domain.ErrEngineUnavailable
	}
	e.mu.Lock()
	e.DestroyCalls++
	e.mu.Unlock()
	return nil
}

// LastPrompt returns the most recent prompt, or empty when none.
func (e *Engine) LastPrompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Prompts) == 0 {
		return ""
	}
	return e.Prompts[len(e.Prompts)-1]
}
