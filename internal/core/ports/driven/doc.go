// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: turns text into a fixed-dimension vector
//   - VectorStore: named indexes of (id, vector, metadata) records
//   - LLMService: completion for answer synthesis
//   - DocumentSource: structured documents from the input directory
//   - Chunker: byte-bounded splitting of section text
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: user-editable prompt templates; built-in defaults otherwise
//   - Speaker: spoken output of answers
//   - PipelineObserver: metrics sink
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
