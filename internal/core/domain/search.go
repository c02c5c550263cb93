package domain

// DefaultTemperature is the synthesis temperature used until changed.
const DefaultTemperature = 0.1

// Match is one nearest-neighbour hit.
type Match struct {
	// ID is the record identifier.
	ID string

	// Index is the index the match came from.
	Index string

	// Score is the store's similarity (cosine) or distance (euclidean).
	Score float64

	// Metadata is the stored attribute record.
	Metadata Metadata
}

// QueryResult is the ordered match list for one query.
// Order is the store's ranking; it is never re-sorted locally.
type QueryResult struct {
	Query   string
	Target  Target
	Matches []Match
}

// AnswerRequest is a query to answer with retrieved context.
type AnswerRequest struct {
	Query       string
	Target      Target
	Temperature float64
}

// Answer is a synthesised response and the matches it was built from.
type Answer struct {
	Text    string
	Matches []Match
}

// ValidTemperature reports whether t lies in [0.0, 1.0].
func ValidTemperature(t float64) bool {
	return t >= 0 && t <= 1
}

// IngestReport summarises one document's ingestion.
type IngestReport struct {
	// RunID identifies the ingestion run in logs.
	RunID string

	// Source is the source identifier.
	Source string

	// IndexName is the index the records went to.
	IndexName string

	// IndexCreated is true when this run created the index.
	IndexCreated bool

	// Chunks is the number of chunks produced.
	Chunks int

	// VectorCount is the number of records actually persisted.
	VectorCount int

	// Skipped counts chunks rejected for exceeding the metadata ceiling.
	Skipped int

	// Failed counts chunks lost to embedding or upsert failures.
	Failed int

	// Batches is the number of upsert calls that succeeded.
	Batches int
}
