// Package services implements the core application logic: document
// retrieval with near-duplicate suppression, the personal memory store
// with MMR re-ranking, token budget allocation, conversation management
// with model-specific prompt templates, and the streaming chat
// orchestrator.
//
// Services depend only on domain types and driven ports.
package services
