package services

import (
	"strings"
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// DefaultHistoryTokenCeiling caps the estimated token size of a rendered
// prompt before the oldest turns are trimmed.
const DefaultHistoryTokenCeiling = 1024

// Conversation holds the bounded turn history of a single conversation
// and renders the final prompt string for the resolved template family.
// Instances are immutable with respect to template and system prompt: a
// model change produces a new instance rather than mutating this one.
// The turn history is guarded by a mutex: a generation worker may still
// be appending the previous reply while the next turn builds its prompt.
type Conversation struct {
	id       string
	template domain.TemplateKind
	system   string
	ceiling  int

	mu    sync.Mutex
	turns []domain.Turn
}

// NewConversation creates a conversation with a resolved template and
// system prompt.
func NewConversation(id string, template domain.TemplateKind, system string, ceiling int) *Conversation {
	if ceiling <= 0 {
		ceiling = DefaultHistoryTokenCeiling
	}
	return &Conversation{
		id:       id,
		template: template,
		system:   system,
		ceiling:  ceiling,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Template returns the resolved template family.
func (c *Conversation) Template() domain.TemplateKind {
	return c.template
}

// System returns the resolved system prompt.
func (c *Conversation) System() string {
	return c.system
}

// AppendUser appends a user turn to the history.
func (c *Conversation) AppendUser(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, domain.Turn{Role: domain.RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn to the history.
func (c *Conversation) AppendAssistant(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, domain.Turn{Role: domain.RoleAssistant, Content: text})
}

// Turns returns a copy of the current history.
func (c *Conversation) Turns() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// HistoryTokens estimates the token cost of the current history.
func (c *Conversation) HistoryTokens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for i := range c.turns {
		total += domain.EstimateTokens(c.turns[i].Content)
	}
	return total
}

// BuildPrompt renders the final prompt for the current turn. The current
// turn already contains the assembled memory/context/question blocks as
// one string. History is trimmed before rendering: while more than one
// turn-pair remains and the rendered prompt exceeds the token ceiling,
// the oldest user+assistant pair is dropped as a unit.
func (c *Conversation) BuildPrompt(current string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		prompt := c.render(current)
		if domain.EstimateTokens(prompt) <= c.ceiling || len(c.turns) <= 2 {
			return prompt
		}
		c.dropOldestPair()
	}
}

// dropOldestPair removes the oldest user+assistant pair as a unit. A
// user turn is never dropped without its assistant reply, and vice versa.
func (c *Conversation) dropOldestPair() {
	if len(c.turns) >= 2 {
		c.turns = c.turns[2:]
		return
	}
	c.turns = nil
}

// render produces the prompt string for the template family: system
// prompt, each prior turn in the family's delimiters, the current turn,
// and an open delimiter inviting the model's continuation.
func (c *Conversation) render(current string) string {
	switch c.template {
	case domain.TemplateChatML:
		return c.renderChatML(current)
	case domain.TemplateTurnDelimited:
		return c.renderTurnDelimited(current)
	case domain.TemplateLegacyHeader:
		return c.renderLegacyHeader(current)
	default:
		return c.renderGeneric(current)
	}
}

func (c *Conversation) renderChatML(current string) string {
	var b strings.Builder
	if c.system != "" {
		b.WriteString("<|im_start|>system\n")
		b.WriteString(c.system)
		b.WriteString("<|im_end|>\n")
	}
	for _, t := range c.turns {
		b.WriteString("<|im_start|>")
		b.WriteString(string(t.Role))
		b.WriteByte('\n')
		b.WriteString(t.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>user\n")
	b.WriteString(current)
	b.WriteString("<|im_end|>\n<|im_start|>assistant\n")
	return b.String()
}

func (c *Conversation) renderTurnDelimited(current string) string {
	var b strings.Builder
	if c.system != "" {
		b.WriteString("<|system|>\n")
		b.WriteString(c.system)
		b.WriteString("</s>\n")
	}
	for _, t := range c.turns {
		if t.Role == domain.RoleUser {
			b.WriteString("<|user|>\n")
		} else {
			b.WriteString("<|assistant|>\n")
		}
		b.WriteString(t.Content)
		b.WriteString("</s>\n")
	}
	b.WriteString("<|user|>\n")
	b.WriteString(current)
	b.WriteString("</s>\n<|assistant|>\n")
	return b.String()
}

func (c *Conversation) renderLegacyHeader(current string) string {
	var b strings.Builder
	if c.system != "" {
		b.WriteString(c.system)
		b.WriteString("\n\n")
	}
	for _, t := range c.turns {
		if t.Role == domain.RoleUser {
			b.WriteString("### Instruction:\n")
		} else {
			b.WriteString("### Response:\n")
		}
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("### Instruction:\n")
	b.WriteString(current)
	b.WriteString("\n\n### Response:\n")
	return b.String()
}

func (c *Conversation) renderGeneric(current string) string {
	var b strings.Builder
	if c.system != "" {
		b.WriteString(c.system)
		b.WriteString("\n\n")
	}
	for _, t := range c.turns {
		if t.Role == domain.RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("User: ")
	b.WriteString(current)
	b.WriteString("\nAssistant:")
	return b.String()
}
