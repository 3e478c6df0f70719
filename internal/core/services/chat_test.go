package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/embedding/hash"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/inference/stub"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/storage/memory"
	"github.com/caldera-labs/assistant-cli/internal/chunker"
	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

type chatFixture struct {
	svc     *ChatService
	engine  *stub.Engine
	conv    *memory.ConversationStore
	metrics *memory.MetricsRecorder
	flags   *memory.FlagStore
}

func newChatFixture(engine *stub.Engine, flagValues map[string]any) *chatFixture {
	conv := memory.NewConversationStore()
	metrics := memory.NewMetricsRecorder()
	flags := memory.NewFlagStore(flagValues)
	models := memory.NewModelStore(map[string]string{"": "/models/qwen2.gguf"})
	return &chatFixture{
		svc:     NewChatService(conv, engine, models, flags, metrics, nil, nil),
		engine:  engine,
		conv:    conv,
		metrics: metrics,
		flags:   flags,
	}
}

// drain consumes the stream to completion and returns the joined reply.
func drain(t *testing.T, stream *domain.TokenStream) string {
	t.Helper()
	var b strings.Builder
	for piece := range stream.Tokens() {
		b.WriteString(piece)
	}
	return b.String()
}

func TestSendMessage_StreamsAndPersists(t *testing.T) {
	f := newChatFixture(stub.New("Hello", " there", "."), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hi")
	require.NoError(t, err)

	reply := drain(t, stream)
	assert.Equal(t, "Hello there.", reply)
	assert.NoError(t, stream.Err())

	msgs, err := f.conv.ListMessages(ctx, "conv", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there.", msgs[1].Content)
}

func TestSendMessage_RecordsMetrics(t *testing.T) {
	f := newChatFixture(stub.New("Some", " reply"), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hi")
	require.NoError(t, err)
	drain(t, stream)
	require.NoError(t, stream.Err())

	rows, err := f.metrics.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "conv", rows[0].ConversationID)
	assert.Equal(t, "qwen2.gguf", rows[0].Model)
	assert.Positive(t, rows[0].PromptTokens)
	assert.Positive(t, rows[0].OutputTokens)
	assert.True(t, rows[0].RAGEnabled)
	assert.True(t, rows[0].MemoryEnabled)
	assert.False(t, rows[0].FirstTokenAt.IsZero())
}

func TestSendMessage_NormalisesSubwordMarkers(t *testing.T) {
	f := newChatFixture(stub.New("▁Hello", "▁world"), nil)

	stream, err := f.svc.SendMessage(context.Background(), "conv", "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello world", drain(t, stream))
}

func TestSendMessage_StripsStopMarkers(t *testing.T) {
	// qwen2.gguf resolves to the ChatML template.
	f := newChatFixture(stub.New("Hi", "<|im_end|>"), nil)

	stream, err := f.svc.SendMessage(context.Background(), "conv", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi", drain(t, stream))
	assert.NoError(t, stream.Err())
}

func TestSendMessage_TrimsLeadingWhitespace(t *testing.T) {
	f := newChatFixture(stub.New("\n ", " Reply"), nil)

	stream, err := f.svc.SendMessage(context.Background(), "conv", "hi")
	require.NoError(t, err)

	reply := drain(t, stream)
	assert.False(t, strings.HasPrefix(reply, " "))
	assert.False(t, strings.HasPrefix(reply, "\n"))
	assert.Contains(t, reply, "Reply")
}

func TestSendMessage_HaltsOnInventedDialogue(t *testing.T) {
	f := newChatFixture(stub.New("Sure thing.", "\nUser:", " invented question", " more drift"), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hi")
	require.NoError(t, err)

	reply := drain(t, stream)
	require.NoError(t, stream.Err())
	assert.NotContains(t, reply, "invented question")
	assert.NotContains(t, reply, "more drift")

	// The persisted turn is cleaned back to the real reply.
	msgs, err := f.conv.ListMessages(ctx, "conv", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Sure thing.", msgs[1].Content)
}

func TestSendMessage_GenerationFailure(t *testing.T) {
	engine := stub.New("partial")
	engine.Err = assert.AnError
	f := newChatFixture(engine, nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hi")
	require.NoError(t, err)

	reply := drain(t, stream)
	assert.Contains(t, reply, "[generation failed]")
	assert.ErrorIs(t, stream.Err(), domain.ErrGenerationFailed)

	// Only the user turn is persisted.
	msgs, err := f.conv.ListMessages(ctx, "conv", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)

	rows, err := f.metrics.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	f := newChatFixture(stub.New("x"), nil)

	_, err := f.svc.SendMessage(context.Background(), "conv", "   ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendMessage_MissingModelAbortsBeforePersistence(t *testing.T) {
	f := newChatFixture(stub.New("x"), map[string]any{
		driven.FlagModel: "absent.gguf",
	})
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, "conv", "hi")

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	msgs, listErr := f.conv.ListMessages(ctx, "conv", 0)
	require.NoError(t, listErr)
	assert.Empty(t, msgs)
}

func TestSendMessage_EngineCreateFailure(t *testing.T) {
	engine := stub.New("x")
	engine.CreateErr = assert.AnError
	f := newChatFixture(engine, nil)

	_, err := f.svc.SendMessage(context.Background(), "conv", "hi")

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestSendMessage_CancelDrainsEngine(t *testing.T) {
	pieces := make([]string, 200)
	for i := range pieces {
		pieces[i] = "tok "
	}
	f := newChatFixture(stub.New(pieces...), nil)

	stream, err := f.svc.SendMessage(context.Background(), "conv", "hi")
	require.NoError(t, err)

	stream.Cancel()
	drain(t, stream)

	// The engine ran the full generation despite cancellation.
	assert.NotEmpty(t, f.engine.LastPrompt())
	assert.NoError(t, stream.Err())
}

func TestSendMessage_SentenceCountOverridesBudget(t *testing.T) {
	f := newChatFixture(stub.New("Short answer."), map[string]any{
		driven.FlagMaxTokens: 999,
	})

	stream, err := f.svc.SendMessage(context.Background(), "conv", "explain this in 2 sentences")
	require.NoError(t, err)
	drain(t, stream)

	require.Len(t, f.engine.MaxTokens, 1)
	assert.Equal(t, 2*tokensPerSentence, f.engine.MaxTokens[0])
}

func TestSendMessage_ClearsCachePerTurn(t *testing.T) {
	f := newChatFixture(stub.New("ok"), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		stream, err := f.svc.SendMessage(ctx, "conv", "hi")
		require.NoError(t, err)
		drain(t, stream)
	}

	assert.Equal(t, 2, f.engine.ClearCalls)
}

func TestSendMessage_SecondTurnCarriesHistory(t *testing.T) {
	f := newChatFixture(stub.New("The sky is blue."), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "what colour is the sky?")
	require.NoError(t, err)
	drain(t, stream)
	require.NoError(t, stream.Err())

	stream, err = f.svc.SendMessage(ctx, "conv", "why?")
	require.NoError(t, err)
	drain(t, stream)

	prompt := f.engine.LastPrompt()
	assert.Contains(t, prompt, "what colour is the sky?")
	assert.Contains(t, prompt, "The sky is blue.")
}

func TestSendMessage_RetrievalBlocksInPrompt(t *testing.T) {
	ctx := context.Background()

	memSvc, _ := newMemoryService()
	_, err := memSvc.Add(ctx, "the user drinks black coffee", "", "", "", 3)
	require.NoError(t, err)

	docSvc := NewContextService(memory.NewDocumentStore(), hash.New(), chunker.New())
	_, err = docSvc.AddDocument(ctx, "beans", "Arabica coffee beans grow best at high altitude.", "")
	require.NoError(t, err)

	engine := stub.New("ok")
	f := newChatFixture(engine, nil)
	f.svc.memories = memSvc
	f.svc.documents = docSvc

	stream, err := f.svc.SendMessage(ctx, "conv", "tell me about coffee the user drinks")
	require.NoError(t, err)
	drain(t, stream)

	prompt := engine.LastPrompt()
	assert.Contains(t, prompt, "MEMORY:\n")
	assert.Contains(t, prompt, "- the user drinks black coffee")
	assert.Contains(t, prompt, "CONTEXT:\n")
}

func TestSendMessage_FlagsDisableRetrieval(t *testing.T) {
	ctx := context.Background()

	memSvc, _ := newMemoryService()
	_, err := memSvc.Add(ctx, "the user drinks black coffee", "", "", "", 3)
	require.NoError(t, err)

	engine := stub.New("ok")
	f := newChatFixture(engine, map[string]any{
		driven.FlagRAGEnabled:    false,
		driven.FlagMemoryEnabled: false,
	})
	f.svc.memories = memSvc

	stream, err := f.svc.SendMessage(ctx, "conv", "coffee?")
	require.NoError(t, err)
	drain(t, stream)

	prompt := engine.LastPrompt()
	assert.NotContains(t, prompt, "MEMORY:")
	assert.NotContains(t, prompt, "CONTEXT:")

	rows, err := f.metrics.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].RAGEnabled)
	assert.False(t, rows[0].MemoryEnabled)
}

func TestChatService_Close(t *testing.T) {
	f := newChatFixture(stub.New("ok"), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hi")
	require.NoError(t, err)
	drain(t, stream)

	require.NoError(t, f.svc.Close())
	assert.Equal(t, 1, f.engine.DestroyCalls)
	// Closing again is a no-op.
	require.NoError(t, f.svc.Close())
	assert.Equal(t, 1, f.engine.DestroyCalls)
}

func TestDeleteConversation_EvictsSession(t *testing.T) {
	f := newChatFixture(stub.New("first reply here"), nil)
	ctx := context.Background()

	stream, err := f.svc.SendMessage(ctx, "conv", "hello there")
	require.NoError(t, err)
	drain(t, stream)
	require.NoError(t, stream.Err())

	require.NoError(t, f.svc.DeleteConversation(ctx, "conv"))

	msgs, err := f.conv.ListMessages(ctx, "conv", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// A new turn starts from a clean session.
	stream, err = f.svc.SendMessage(ctx, "conv", "fresh start")
	require.NoError(t, err)
	drain(t, stream)
	assert.NotContains(t, f.engine.LastPrompt(), "hello there")
}
