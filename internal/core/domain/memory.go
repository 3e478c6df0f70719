package domain

import (
	"strings"
	"time"
)

// MemoryItem is a short personal fact stored on behalf of the user.
// Content is always held in normalised form; no two items share identical
// normalised content.
type MemoryItem struct {
	// ID is the unique identifier for the memory.
	ID string

	// Title is an optional human-readable label.
	Title string

	// Content is the normalised fact text (lower-cased, whitespace
	// collapsed, trimmed).
	Content string

	// Keywords is a comma-joined keyword list.
	Keywords string

	// Tags is a comma-joined tag list.
	Tags string

	// Importance ranks the memory from 1 (low) to 5 (high).
	Importance int

	// CreatedAt is when the memory was stored.
	CreatedAt time.Time

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time

	// ExpiresAt is an optional expiry; nil means the memory never expires.
	ExpiresAt *time.Time
}

// NormalizeMemoryContent lower-cases, collapses internal whitespace and
// trims the given text. Two memories are duplicates when their normalised
// content is identical.
func NormalizeMemoryContent(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
