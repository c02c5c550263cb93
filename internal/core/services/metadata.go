package services

import (
	"sort"
	"strings"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// DefaultMetadataMaxBytes is the serialised metadata ceiling per record.
const DefaultMetadataMaxBytes = 40960

// DocumentContext holds the document-level attributes shared by every chunk.
type DocumentContext struct {
	Title        string
	Authors      []string
	Affiliations []string
}

// NewDocumentContext extracts the title, author names and the
// deduplicated affiliation set of doc. Affiliations are sorted.
func NewDocumentContext(doc *domain.Document) DocumentContext {
	dc := DocumentContext{
		Title:        doc.DisplayTitle(),
		Authors:      make([]string, 0, len(doc.Metadata.Authors)),
		Affiliations: []string{},
	}

	seen := make(map[string]struct{})
	for _, a := range doc.Metadata.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			dc.Authors = append(dc.Authors, name)
		}
		for _, aff := range a.Affiliations {
			aff = strings.TrimSpace(aff)
			if aff == "" {
				continue
			}
			if _, ok := seen[aff]; ok {
				continue
			}
			seen[aff] = struct{}{}
			dc.Affiliations = append(dc.Affiliations, aff)
		}
	}
	sort.Strings(dc.Affiliations)
	return dc
}

// SectionText normalises a section's content and appends the figure
// caption and image file as trailing annotation lines.
func SectionText(sec *domain.Section) (string, error) {
	text, err := sec.Content.Normalize()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(text)
	if c := strings.TrimSpace(sec.FigureCaption); c != "" {
		b.WriteString("\nFigure Caption: ")
		b.WriteString(c)
	}
	if f := strings.TrimSpace(sec.ImageFile); f != "" {
		b.WriteString("\nImage File: ")
		b.WriteString(f)
	}
	return b.String(), nil
}

// BuildMetadata assembles the record stored next to a chunk's vector.
func BuildMetadata(dc DocumentContext, sec *domain.Section, chunk domain.Chunk) domain.Metadata {
	refs := sec.ReferenceLabels()
	return domain.Metadata{
		SourceFile:    chunk.Source,
		DocumentTitle: dc.Title,
		Authors:       dc.Authors,
		Affiliations:  dc.Affiliations,
		SectionTitle:  sec.DisplayTitle(chunk.SectionIndex),
		SectionType:   sec.Type,
		References:    refs,
		FigureCaption: sec.FigureCaption,
		ImageFile:     sec.ImageFile,
		Content:       chunk.Content,
		SectionIndex:  chunk.SectionIndex,
		ChunkIndex:    chunk.Index,
	}
}

// CheckMetadataSize returns a capacity error when m serialises to more
// than maxBytes. maxBytes <= 0 disables the check.
func CheckMetadataSize(m domain.Metadata, chunkID string, maxBytes int) error {
	if maxBytes <= 0 {
		return nil
	}
	size, err := m.Size()
	if err != nil {
		return domain.InputError("encode metadata", chunkID, err)
	}
	if size > maxBytes {
		return domain.CapacityError("check metadata", chunkID, domain.ErrMetadataTooLarge)
	}
	return nil
}
