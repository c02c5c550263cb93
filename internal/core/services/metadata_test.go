package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

func testDocument() *domain.Document {
	return &domain.Document{
		Title: "On Vectors",
		Metadata: domain.DocumentMetadata{Authors: []domain.Author{
			{Name: "Ada", Affiliations: []string{"Univ B", "Univ A"}},
			{Name: "Grace", Affiliations: []string{"Univ A", " "}},
			{Name: " "},
		}},
		Content: []domain.Section{
			{
				Title:         "Introduction",
				Type:          "text",
				References:    []domain.Reference{{Label: "smith2020"}, {Label: ""}},
				FigureCaption: "A plot",
				ImageFile:     "fig1.png",
				Content:       domain.PlainText("  Vectors are useful.  "),
			},
			{Content: domain.PlainText("Second section body.")},
		},
	}
}

func TestNewDocumentContext(t *testing.T) {
	dc := NewDocumentContext(testDocument())

	assert.Equal(t, "On Vectors", dc.Title)
	assert.Equal(t, []string{"Ada", "Grace"}, dc.Authors)
	assert.Equal(t, []string{"Univ A", "Univ B"}, dc.Affiliations)
}

func TestNewDocumentContext_DefaultTitle(t *testing.T) {
	dc := NewDocumentContext(&domain.Document{})

	assert.Equal(t, domain.DefaultDocumentTitle, dc.Title)
	assert.Empty(t, dc.Authors)
	assert.NotNil(t, dc.Affiliations)
}

func TestSectionText(t *testing.T) {
	doc := testDocument()

	text, err := SectionText(&doc.Content[0])
	require.NoError(t, err)
	assert.Equal(t, "Vectors are useful.\nFigure Caption: A plot\nImage File: fig1.png", text)

	text, err = SectionText(&doc.Content[1])
	require.NoError(t, err)
	assert.Equal(t, "Second section body.", text)
}

func TestSectionText_Malformed(t *testing.T) {
	sec := &domain.Section{Content: domain.InlineElements(domain.Span{Value: "x"})}

	_, err := SectionText(sec)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestBuildMetadata(t *testing.T) {
	doc := testDocument()
	dc := NewDocumentContext(doc)
	chunk := domain.Chunk{ID: "paper_section_2_chunk_1", Source: "paper", SectionIndex: 2, Index: 1, Content: "body"}

	md := BuildMetadata(dc, &doc.Content[1], chunk)

	assert.Equal(t, "paper", md.SourceFile)
	assert.Equal(t, "On Vectors", md.DocumentTitle)
	assert.Equal(t, "Section 2", md.SectionTitle)
	assert.Equal(t, "body", md.Content)
	assert.Equal(t, 2, md.SectionIndex)
	assert.Equal(t, 1, md.ChunkIndex)
	assert.Equal(t, []string{"Univ A", "Univ B"}, md.Affiliations)

	md = BuildMetadata(dc, &doc.Content[0], chunk)
	assert.Equal(t, "Introduction", md.SectionTitle)
	assert.Equal(t, "A plot", md.FigureCaption)
	assert.Contains(t, md.References, "smith2020")
}

func TestCheckMetadataSize(t *testing.T) {
	small := domain.Metadata{Content: "short"}
	big := domain.Metadata{Content: strings.Repeat("x", 2000)}

	assert.NoError(t, CheckMetadataSize(small, "a", 1000))
	assert.NoError(t, CheckMetadataSize(big, "a", 0))

	err := CheckMetadataSize(big, "a", 1000)
	assert.ErrorIs(t, err, domain.ErrMetadataTooLarge)
	assert.Equal(t, domain.KindCapacity, domain.KindOf(err))
}
