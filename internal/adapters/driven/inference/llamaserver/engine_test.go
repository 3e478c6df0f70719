package llamaserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

func writeModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.gguf")
	require.NoError(t, os.WriteFile(path, []byte("gguf"), 0600))
	return path
}

// newServer builds a test server answering /health and replaying the
// given pieces as SSE completion events.
func newServer(t *testing.T, pieces []string, gotReq *completionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/completion":
			if gotReq != nil {
				require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
			}
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, piece := range pieces {
				fmt.Fprintf(w, "data: {\"content\": %q, \"stop\": false}\n\n", piece)
				flusher.Flush()
			}
			fmt.Fprint(w, "data: {\"content\": \"\", \"stop\": true}\n\n")
			flusher.Flush()
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCreate_ValidatesModelAndServer(t *testing.T) {
	srv := newServer(t, nil, nil)
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	h, err := engine.Create(context.Background(), writeModelFile(t), 4)

	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestCreate_MissingModelFile(t *testing.T) {
	srv := newServer(t, nil, nil)
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	_, err := engine.Create(context.Background(), "/nonexistent/model.gguf", 4)

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestCreate_UnhealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	_, err := engine.Create(context.Background(), writeModelFile(t), 4)

	assert.Error(t, err)
}

func TestGenerateStream_ForwardsPieces(t *testing.T) {
	var got completionRequest
	srv := newServer(t, []string{"Hello", " world"}, &got)
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	h, err := engine.Create(context.Background(), writeModelFile(t), 4)
	require.NoError(t, err)

	var pieces []string
	err = engine.GenerateStream(context.Background(), h, "the prompt", 64, func(piece string) {
		pieces = append(pieces, piece)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, pieces)
	assert.Equal(t, "the prompt", got.Prompt)
	assert.Equal(t, 64, got.NPredict)
	assert.True(t, got.Stream)
	assert.False(t, got.CachePrompt)
	assert.Equal(t, 4, got.NThreads)
}

func TestGenerateStream_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	h, err := engine.Create(context.Background(), writeModelFile(t), 4)
	require.NoError(t, err)

	err = engine.GenerateStream(context.Background(), h, "p", 16, func(string) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGenerateStream_CancelledContextIsClean(t *testing.T) {
	srv := newServer(t, []string{"x"}, nil)
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	h, err := engine.Create(context.Background(), writeModelFile(t), 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	err = engine.GenerateStream(ctx, h, "p", 16, func(string) {
		cancel()
	})

	assert.NoError(t, err)
}

func TestGenerateStream_InvalidHandle(t *testing.T) {
	engine := New(Config{})

	err := engine.GenerateStream(context.Background(), nil, "p", 16, func(string) {})

	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

func TestClearCacheAndDestroy(t *testing.T) {
	srv := newServer(t, nil, nil)
	defer srv.Close()
	engine := New(Config{BaseURL: srv.URL})

	h, err := engine.Create(context.Background(), writeModelFile(t), 4)
	require.NoError(t, err)

	assert.NoError(t, engine.ClearCache(h))
	assert.NoError(t, engine.Destroy(h))

	assert.ErrorIs(t, engine.ClearCache(nil), domain.ErrEngineUnavailable)
	assert.ErrorIs(t, engine.Destroy(nil), domain.ErrEngineUnavailable)
}
