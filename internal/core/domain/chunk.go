package domain

import (
	"encoding/json"
	"fmt"
)

// Chunk is a byte-bounded fragment of one section's normalised content.
type Chunk struct {
	// ID is {source}_section_{SectionIndex}_chunk_{Index}.
	ID string

	// Source is the source identifier the document was ingested under.
	Source string

	// SectionIndex is the 1-based position of the section in the document.
	SectionIndex int

	// Index is the 1-based position of the chunk within its section.
	Index int

	// Content is the fragment text.
	Content string
}

// ChunkID formats the identifier of a chunk.
func ChunkID(source string, sectionIndex, chunkIndex int) string {
	return fmt.Sprintf("%s_section_%d_chunk_%d", source, sectionIndex, chunkIndex)
}

// Metadata is the attribute record stored next to each vector.
type Metadata struct {
	SourceFile    string   `json:"source_file"`
	DocumentTitle string   `json:"document_title"`
	Authors       []string `json:"authors"`
	Affiliations  []string `json:"affiliations"`
	SectionTitle  string   `json:"section_title"`
	SectionType   string   `json:"section_type"`
	References    []string `json:"references"`
	FigureCaption string   `json:"figure_caption"`
	ImageFile     string   `json:"image_file"`
	Content       string   `json:"content"`
	SectionIndex  int      `json:"section_index"`
	ChunkIndex    int      `json:"chunk_index"`
}

// Size returns the byte length of the JSON encoding of m.
func (m Metadata) Size() (int, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// IndexRecord is an (identifier, vector, metadata) triple ready for upsert.
type IndexRecord struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}
