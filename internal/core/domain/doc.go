// Package domain contains the core business entities for the assistant:
// documents and their chunks, personal memory items, conversation turns,
// prompt templates, retrieval results, and generation metrics.
//
// Domain types have no dependencies on adapters or infrastructure.
package domain
