// Package domain defines the core entities of the TexQuery pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document, Section, Content: the structured input
//   - Chunk, Metadata, IndexRecord: what ingestion produces
//   - Match, QueryResult, Answer: what retrieval produces
//   - Error, ErrorKind: classified failures
//   - SessionState, Command: the interactive session contract
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
