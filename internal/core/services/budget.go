package services

import (
	"strings"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// Budget allocation greedily fills fixed token budgets for the memory and
// context blocks of a prompt. The blocks use independent budgets so one
// source cannot starve the other. Token costs use the fixed heuristic in
// domain.EstimateTokens, always measured against the rendered block so
// the newline separators between items are charged too.

// AllocateBlock joins items into a newline-separated block without
// exceeding the token budget. Items are taken in priority order; the loop
// stops at the first item that does not fit rather than skipping ahead,
// preserving ordering and avoiding budget fragmentation. Returns the
// rendered block and its estimated token cost.
func AllocateBlock(items []string, budget int) (string, int) {
	block := ""
	used := 0

	for _, item := range items {
		candidate := appendLine(block, item)
		cost := domain.EstimateTokens(candidate)
		if cost > budget {
			break
		}
		block = candidate
		used = cost
	}

	return block, used
}

// AllocateContextBlock behaves like AllocateBlock but may truncate the
// first non-fitting chunk to the last sentence boundary within the
// remaining byte budget. The truncated chunk is included only if the
// resulting block still fits; either way the loop stops there.
func AllocateContextBlock(chunks []string, budget int) (string, int) {
	block := ""
	used := 0

	for _, chunk := range chunks {
		candidate := appendLine(block, chunk)
		if cost := domain.EstimateTokens(candidate); cost <= budget {
			block = candidate
			used = cost
			continue
		}

		// Four chars per token keeps the byte window consistent with
		// the token heuristic; the separator spends one byte of it.
		window := (budget - used) * 4
		if block != "" {
			window--
		}
		truncated := truncateToSentence(chunk, window)
		if truncated != "" {
			candidate = appendLine(block, truncated)
			if cost := domain.EstimateTokens(candidate); cost <= budget {
				block = candidate
				used = cost
			}
		}
		break
	}

	return block, used
}

// appendLine joins a block and an item with a newline separator.
func appendLine(block, item string) string {
	if block == "" {
		return item
	}
	return block + "\n" + item
}

// truncateToSentence cuts text to at most maxChars, backing up to the
// last sentence terminator ('.', '\n', then space). Returns "" when no
// safe boundary exists within the limit.
func truncateToSentence(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return strings.TrimSpace(text)
	}

	window := text[:maxChars]
	for _, term := range []byte{'.', '\n', ' '} {
		if idx := strings.LastIndexByte(window, term); idx > 0 {
			return strings.TrimSpace(window[:idx+1])
		}
	}
	return ""
}
