// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, embeddings, the inference engine,
// model files, feature flags, and metrics.
package driven
