// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - FlagStore: TOML-based settings and feature flag storage
//   - PromptFile: plain-text system prompt override
package file
