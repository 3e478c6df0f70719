package domain

import "strings"

// TemplateKind is a closed set of prompt template families. The family is
// resolved once per model change from the model filename and cached; an
// unknown model falls back to the generic "Role: text" format.
type TemplateKind int

const (
	// TemplateGeneric renders plain "User:" / "Assistant:" headers.
	TemplateGeneric TemplateKind = iota

	// TemplateChatML renders <|im_start|>role ... <|im_end|> delimiters
	// (Qwen, Yi, and other ChatML-trained models).
	TemplateChatML

	// TemplateTurnDelimited renders <|user|> ... </s> turn delimiters
	// (TinyLlama, Zephyr family).
	TemplateTurnDelimited

	// TemplateLegacyHeader renders "### Instruction" style headers
	// (Alpaca, Vicuna family).
	TemplateLegacyHeader
)

// String returns a human-readable template name.
func (k TemplateKind) String() string {
	switch k {
	case TemplateChatML:
		return "chatml"
	case TemplateTurnDelimited:
		return "turn-delimited"
	case TemplateLegacyHeader:
		return "legacy-header"
	default:
		return "generic"
	}
}

// DetectTemplate resolves the template family for a model file name.
// Matching is a pure function of the lower-cased filename.
func DetectTemplate(modelFile string) TemplateKind {
	name := strings.ToLower(modelFile)
	switch {
	case strings.Contains(name, "qwen"),
		strings.Contains(name, "chatml"),
		strings.Contains(name, "yi-"):
		return TemplateChatML
	case strings.Contains(name, "tinyllama"),
		strings.Contains(name, "zephyr"),
		strings.Contains(name, "stablelm"):
		return TemplateTurnDelimited
	case strings.Contains(name, "alpaca"),
		strings.Contains(name, "vicuna"),
		strings.Contains(name, "wizard"):
		return TemplateLegacyHeader
	default:
		return TemplateGeneric
	}
}

// StopMarkers returns token sequences that indicate the model finished
// its turn for this template family. Markers leaking into token text are
// suppressed by the generation pipeline.
func (k TemplateKind) StopMarkers() []string {
	switch k {
	case TemplateChatML:
		return []string{"<|im_end|>", "<|endoftext|>"}
	case TemplateTurnDelimited:
		return []string{"</s>", "<|user|>"}
	case TemplateLegacyHeader:
		return []string{"</s>", "### Instruction"}
	default:
		return []string{"</s>", "User:"}
	}
}
