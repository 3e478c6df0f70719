package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driving"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Generation defaults.
const (
	// DefaultMaxTokens bounds a reply when no override applies.
	DefaultMaxTokens = 256

	// DefaultSystemPrompt is used when no override is configured.
	DefaultSystemPrompt = "You are a helpful personal assistant. " +
		"Answer concisely, using the provided memory and context when relevant."

	// memoryTopK and contextTopK bound retrieval per turn.
	memoryTopK  = 3
	contextTopK = 3

	// contextMinSimilarity is the semantic floor for document retrieval.
	contextMinSimilarity = 0.3

	// memoryTokenBudget and contextTokenBudget are the independent
	// block budgets.
	memoryTokenBudget  = 150
	contextTokenBudget = 350

	// streamBuffer is the token channel capacity.
	streamBuffer = 64

	// tokensPerSentence converts a "N sentences" request into a token
	// budget.
	tokensPerSentence = 40

	// maxNewlineRun stops generation drifting into invented dialogue.
	maxNewlineRun = 3
)

// subwordMarker is the sentencepiece whitespace marker that leaks into
// detokenised pieces.
const subwordMarker = "▁"

// sentenceCountRe matches phrases like "3 sentences" in the user text.
var sentenceCountRe = regexp.MustCompile(`(?i)\b(\d+)\s+sentences?\b`)

// ChatService orchestrates a user turn: persist, retrieve, assemble,
// stream-generate, persist, and record metrics.
//
// The inference context is a single non-reentrant resource: generations
// are serialised on an internal mutex and the KV cache is cleared before
// each turn so conversations never leak into each other.
type ChatService struct {
	convStore driven.ConversationStore
	engine    driven.Engine
	models    driven.ModelStore
	flags     driven.FlagStore
	metrics   driven.MetricsRecorder
	memories  driving.MemoryService
	documents driving.DocumentService
	sessions  *Sessions

	mu         sync.Mutex
	handle     driven.Handle
	handlePath string
}

// NewChatService creates the chat orchestrator. memories and documents
// are optional; when nil the corresponding block is simply absent from
// assembled prompts.
func NewChatService(
	convStore driven.ConversationStore,
	engine driven.Engine,
	models driven.ModelStore,
	flags driven.FlagStore,
	metrics driven.MetricsRecorder,
	memories driving.MemoryService,
	documents driving.DocumentService,
) *ChatService {
	return &ChatService{
		convStore: convStore,
		engine:    engine,
		models:    models,
		flags:     flags,
		metrics:   metrics,
		memories:  memories,
		documents: documents,
		sessions:  NewSessions(DefaultHistoryTokenCeiling),
	}
}

// SendMessage runs a full generation turn and returns the token stream.
// The stream terminates on the model stop condition, a generation error,
// or consumer cancellation; cancellation stops forwarding but the engine
// call is still drained so the native context stays clean.
func (s *ChatService) SendMessage(
	ctx context.Context, conversationID, text string,
) (*domain.TokenStream, error) {
	logger.Section("Chat Turn")

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if s.engine == nil {
		return nil, domain.ErrEngineUnavailable
	}

	// Feature flags are consulted once, at the start of the turn.
	ragEnabled := s.flags.Bool(driven.FlagRAGEnabled, true)
	memoryEnabled := s.flags.Bool(driven.FlagMemoryEnabled, true)
	threads := s.flags.Int(driven.FlagThreads, runtime.NumCPU())
	modelID := s.flags.String(driven.FlagModel, "")
	system := s.flags.String(driven.FlagSystemPrompt, DefaultSystemPrompt)
	logger.Debug("Flags: rag=%t memory=%t threads=%d model=%q", ragEnabled, memoryEnabled, threads, modelID)

	// The turn aborts before any persistence when the model is missing.
	modelPath, err := s.models.Path(modelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelUnavailable, modelID)
	}
	modelFile := filepath.Base(modelPath)

	if err := s.ensureHandle(ctx, modelPath, threads); err != nil {
		return nil, err
	}

	// Resolve the session before persisting the current question so a
	// rebuilt session never replays the question into its history.
	session, err := s.sessions.Get(ctx, conversationID, modelFile, system, s.convStore)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if err := s.saveTurn(ctx, conversationID, domain.RoleUser, text); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}

	// Retrieval failures degrade to an empty block; the turn proceeds.
	memoryBlock, memoryTokens := s.memoryBlock(ctx, text, memoryEnabled)
	contextBlock, contextTokens := s.contextBlock(ctx, text, ragEnabled)

	current := assembleTurn(memoryBlock, contextBlock, text)
	historyTokens := session.HistoryTokens()
	prompt := session.BuildPrompt(current)
	maxTokens := s.maxTokensFor(text)
	logger.Debug("Prompt: ~%d tokens, maxTokens=%d, template=%s",
		domain.EstimateTokens(prompt), maxTokens, session.Template())

	metrics := &domain.GenerationMetrics{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Model:          modelFile,
		PromptTokens:   domain.EstimateTokens(prompt),
		HistoryTokens:  historyTokens,
		ContextTokens:  memoryTokens + contextTokens,
		RAGEnabled:     ragEnabled,
		MemoryEnabled:  memoryEnabled,
	}

	stream := domain.NewTokenStream(streamBuffer)
	go s.generate(ctx, stream, session, prompt, text, maxTokens, metrics)

	return stream, nil
}

// History returns the persisted turns of a conversation.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	msgs, err := s.convStore.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// DeleteConversation removes persisted turns and evicts the session.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.convStore.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.sessions.Evict(conversationID)
	return nil
}

// Close releases the engine handle.
func (s *ChatService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	err := s.engine.Destroy(s.handle)
	s.handle = nil
	s.handlePath = ""
	return err
}

// ensureHandle creates or swaps the engine handle for the model path.
func (s *ChatService) ensureHandle(ctx context.Context, modelPath string, threads int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && s.handlePath == modelPath {
		return nil
	}
	if s.handle != nil {
		if err := s.engine.Destroy(s.handle); err != nil {
			logger.Warn("Destroying previous engine handle: %v", err)
		}
		s.handle = nil
		s.handlePath = ""
	}

	handle, err := s.engine.Create(ctx, modelPath, threads)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	s.handle = handle
	s.handlePath = modelPath
	logger.Info("Loaded model %s", filepath.Base(modelPath))
	return nil
}

// generate runs on a background worker. It serialises access to the
// engine, clears the KV cache, streams tokens through normalisation into
// the consumer stream, and on normal completion persists the reply and
// records metrics. On a hard failure it emits a single synthetic error
// piece and persists nothing for the assistant turn.
func (s *ChatService) generate(
	ctx context.Context,
	stream *domain.TokenStream,
	session *Conversation,
	prompt, userText string,
	maxTokens int,
	metrics *domain.GenerationMetrics,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.ClearCache(s.handle); err != nil {
		logger.Warn("Clearing KV cache: %v", err)
	}

	stop := session.Template().StopMarkers()
	var (
		reply      strings.Builder
		first      = true
		accepting  = true
		halted     = false
		firstToken time.Time
	)

	metrics.StartedAt = time.Now()
	err := s.engine.GenerateStream(ctx, s.handle, prompt, maxTokens, func(piece string) {
		if firstToken.IsZero() {
			firstToken = time.Now()
		}
		if halted {
			return
		}

		piece = normalizePiece(piece, stop, first)
		if piece == "" {
			return
		}
		first = false

		if stream.Cancelled() {
			// Soft cancellation: stop forwarding and accumulating but
			// let the engine drain to its own stop condition.
			accepting = false
		}
		if !accepting {
			return
		}
		if stream.Emit(piece) {
			reply.WriteString(piece)
		}

		if shouldHalt(reply.String()) {
			halted = true
		}
	})
	metrics.CompletedAt = time.Now()
	metrics.FirstTokenAt = firstToken

	if err != nil {
		logger.Warn("Generation failed: %v", err)
		stream.Emit("[generation failed]")
		stream.Close(fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err))
		return
	}

	final := cleanReply(reply.String())
	if err := s.saveTurn(ctx, session.ID(), domain.RoleAssistant, final); err != nil {
		logger.Warn("Persisting assistant turn: %v", err)
		stream.Close(fmt.Errorf("persist assistant turn: %w", err))
		return
	}

	session.AppendUser(userText)
	session.AppendAssistant(final)

	s.finishMetrics(ctx, metrics, final)
	stream.Close(nil)
}

// finishMetrics derives the timing figures and records the row.
func (s *ChatService) finishMetrics(ctx context.Context, m *domain.GenerationMetrics, reply string) {
	m.OutputTokens = domain.EstimateTokens(reply)
	if !m.FirstTokenAt.IsZero() {
		m.PrefillMillis = m.FirstTokenAt.Sub(m.StartedAt).Milliseconds()
		if decode := m.CompletedAt.Sub(m.FirstTokenAt).Seconds(); decode > 0 {
			m.DecodeTokensPerSec = float64(m.OutputTokens) / decode
		}
	}

	if s.metrics == nil {
		return
	}
	if err := s.metrics.Record(ctx, m); err != nil {
		logger.Warn("Recording metrics: %v", err)
		return
	}
	logger.Info("Turn metrics: prefill=%dms decode=%.1f tok/s output=~%d tokens",
		m.PrefillMillis, m.DecodeTokensPerSec, m.OutputTokens)
}

// memoryBlock retrieves and renders the memory block under its budget.
func (s *ChatService) memoryBlock(ctx context.Context, query string, enabled bool) (string, int) {
	if !enabled || s.memories == nil {
		return "", 0
	}
	items, err := s.memories.Search(ctx, query, memoryTopK)
	if err != nil {
		logger.Warn("Memory retrieval failed, proceeding without: %v", err)
		return "", 0
	}
	lines := make([]string, len(items))
	for i := range items {
		lines[i] = "- " + items[i].Content
	}
	return AllocateBlock(lines, memoryTokenBudget)
}

// contextBlock retrieves and renders the document context block under its
// budget.
func (s *ChatService) contextBlock(ctx context.Context, query string, enabled bool) (string, int) {
	if !enabled || s.documents == nil {
		return "", 0
	}
	results, err := s.documents.Search(ctx, query, contextTopK, contextMinSimilarity)
	if err != nil {
		logger.Warn("Context retrieval failed, proceeding without: %v", err)
		return "", 0
	}
	chunks := make([]string, len(results))
	for i := range results {
		chunks[i] = results[i].Content
	}
	return AllocateContextBlock(chunks, contextTokenBudget)
}

// saveTurn persists a single conversation turn.
func (s *ChatService) saveTurn(ctx context.Context, conversationID string, role domain.Role, content string) error {
	return s.convStore.SaveMessage(ctx, &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	})
}

// maxTokensFor derives the token budget for a turn. A "N sentences"
// phrase in the user text wins over the configured override.
func (s *ChatService) maxTokensFor(text string) int {
	if m := sentenceCountRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			budget := n * tokensPerSentence
			if budget > 4*DefaultMaxTokens {
				budget = 4 * DefaultMaxTokens
			}
			return budget
		}
	}
	return s.flags.Int(driven.FlagMaxTokens, DefaultMaxTokens)
}

// assembleTurn builds the current-turn string from the retrieved blocks
// and the question.
func assembleTurn(memoryBlock, contextBlock, question string) string {
	var b strings.Builder
	if memoryBlock != "" {
		b.WriteString("MEMORY:\n")
		b.WriteString(memoryBlock)
		b.WriteString("\n\n")
	}
	if contextBlock != "" {
		b.WriteString("CONTEXT:\n")
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}
	b.WriteString(question)
	return b.String()
}

// normalizePiece strips end-of-turn markers that leak into token text and
// normalises sentencepiece whitespace artifacts. The very first emitted
// piece has its leading whitespace stripped.
func normalizePiece(piece string, stopMarkers []string, first bool) string {
	for _, marker := range stopMarkers {
		piece = strings.ReplaceAll(piece, marker, "")
	}

	if piece == subwordMarker {
		piece = " "
	} else if strings.HasPrefix(piece, subwordMarker) {
		piece = " " + strings.TrimPrefix(piece, subwordMarker)
	}

	if first {
		piece = strings.TrimLeft(piece, " \t\n\r")
	}
	return piece
}

// shouldHalt detects the model drifting into invented dialogue: a
// hallucinated "User:" turn, a second "Assistant:" header, or an
// excessive run of newlines.
func shouldHalt(accumulated string) bool {
	if strings.Contains(accumulated, "User:") {
		return true
	}
	if idx := strings.Index(accumulated, "Assistant:"); idx >= 0 && len(accumulated) > 20 {
		return true
	}
	return strings.Count(accumulated, "\n") > maxNewlineRun
}

// cleanReply trims dialogue artifacts and trailing whitespace from the
// accumulated reply before persistence.
func cleanReply(reply string) string {
	if idx := strings.Index(reply, "User:"); idx >= 0 {
		reply = reply[:idx]
	}
	if idx := strings.Index(reply, "Assistant:"); idx > 10 {
		reply = reply[:idx]
	}
	return strings.TrimRight(reply, " \t\n\r")
}
