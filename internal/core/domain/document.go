package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultDocumentTitle is used when a document carries no title.
const DefaultDocumentTitle = "Title not listed."

// DocumentFile is the on-disk envelope of a structured document.
type DocumentFile struct {
	Document Document `json:"document"`
}

// Document is a structured document produced by an upstream converter.
// It is read-only to the pipeline.
type Document struct {
	// Title is the human-readable title.
	Title string `json:"title"`

	// Metadata holds document-level attributes.
	Metadata DocumentMetadata `json:"metadata"`

	// Content is the ordered list of sections.
	Content []Section `json:"content"`
}

// DocumentMetadata holds document-level attributes.
type DocumentMetadata struct {
	Authors []Author `json:"authors"`
}

// Author is a named contributor with zero or more affiliations.
type Author struct {
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// Reference is a citation label attached to a section.
type Reference struct {
	Label string `json:"label"`
}

// Section is one ordered unit of a document's body.
type Section struct {
	// Title is the section heading. Empty means untitled.
	Title string `json:"section"`

	// Type is a free-form tag such as "section" or "figure".
	Type string `json:"type"`

	// References lists citation labels used by the section.
	References []Reference `json:"references"`

	// FigureCaption is set for figure sections.
	FigureCaption string `json:"figure_caption"`

	// ImageFile points at the figure's image, if any.
	ImageFile string `json:"image_file"`

	// Content is plain text or a sequence of typed inline elements.
	Content Content `json:"content"`
}

// DisplayTitle returns the document title, or DefaultDocumentTitle when empty.
func (d *Document) DisplayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return DefaultDocumentTitle
}

// DisplayTitle returns the section title, or "Section N" for the 1-based index n.
func (s *Section) DisplayTitle(n int) string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Section %d", n)
}

// ReferenceLabels returns the section's reference labels in order.
func (s *Section) ReferenceLabels() []string {
	labels := make([]string, 0, len(s.References))
	for _, r := range s.References {
		labels = append(labels, r.Label)
	}
	return labels
}

// ContentKind discriminates the Content variant.
type ContentKind int

const (
	// ContentPlain holds a single string.
	ContentPlain ContentKind = iota

	// ContentInline holds a sequence of typed spans.
	ContentInline
)

// Span kinds with a fixed text representation.
const (
	SpanText        = "text"
	SpanMath        = "math"
	SpanInlineMath  = "inline_math"
	SpanDisplayMath = "display_math"
	SpanEquation    = "equation"
)

// Span is one typed inline element of structured content.
type Span struct {
	// Type names the element kind, e.g. "text" or "inline_math".
	Type string

	// Value is the element's textual payload.
	Value string

	// Raw is the element as it appeared in the source, used for
	// generic serialisation of unrecognised kinds.
	Raw json.RawMessage
}

// Content is either plain text or a list of inline elements.
// The zero value is empty plain text.
type Content struct {
	kind  ContentKind
	text  string
	spans []Span
}

// PlainText builds plain-text content.
func PlainText(s string) Content {
	return Content{kind: ContentPlain, text: s}
}

// InlineElements builds structured content from spans.
func InlineElements(spans ...Span) Content {
	return Content{kind: ContentInline, spans: spans}
}

// Kind returns which variant c holds.
func (c Content) Kind() ContentKind {
	return c.kind
}

// Spans returns the inline elements of structured content.
func (c Content) Spans() []Span {
	return c.spans
}

// Normalize resolves the content to a single trimmed string.
// Plain text is trimmed; spans are rendered and joined with single spaces.
// A span without a type cannot be rendered and fails with ErrMalformedDocument.
func (c Content) Normalize() (string, error) {
	if c.kind == ContentPlain {
		return strings.TrimSpace(c.text), nil
	}

	parts := make([]string, 0, len(c.spans))
	for i, sp := range c.spans {
		s, err := sp.render()
		if err != nil {
			return "", fmt.Errorf("%w: element %d: %w", ErrMalformedDocument, i, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

func (sp Span) render() (string, error) {
	kind := strings.ToLower(strings.TrimSpace(sp.Type))
	switch strings.ReplaceAll(kind, "-", "_") {
	case "":
		return "", fmt.Errorf("element has no type")
	case SpanText:
		return sp.Value, nil
	case SpanMath, SpanInlineMath:
		return "$" + strings.TrimSpace(sp.Value) + "$", nil
	case SpanDisplayMath, SpanEquation:
		return "$$" + strings.TrimSpace(sp.Value) + "$$", nil
	}
	if sp.Value != "" {
		return "[" + kind + ": " + sp.Value + "]", nil
	}
	if len(sp.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, sp.Raw); err == nil {
			return buf.String(), nil
		}
		return string(sp.Raw), nil
	}
	return "[" + kind + "]", nil
}

// UnmarshalJSON accepts a JSON string, null, or an array whose items are
// strings (text elements) or objects carrying a "type" and a value under
// "value", "content" or "text".
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = PlainText("")
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = PlainText(s)
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		spans := make([]Span, 0, len(items))
		for i, item := range items {
			sp, err := decodeSpan(item)
			if err != nil {
				return fmt.Errorf("%w: content element %d: %w", ErrMalformedDocument, i, err)
			}
			spans = append(spans, sp)
		}
		*c = InlineElements(spans...)
		return nil
	default:
		return fmt.Errorf("%w: content must be a string or an array", ErrMalformedDocument)
	}
}

func decodeSpan(item json.RawMessage) (Span, error) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return Span{}, err
		}
		return Span{Type: SpanText, Value: s, Raw: item}, nil
	}

	var obj struct {
		Type    string          `json:"type"`
		Value   json.RawMessage `json:"value"`
		Content json.RawMessage `json:"content"`
		Text    json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return Span{}, err
	}

	sp := Span{Type: obj.Type, Raw: item}
	for _, v := range []json.RawMessage{obj.Value, obj.Content, obj.Text} {
		if len(v) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			sp.Value = s
		} else {
			var buf bytes.Buffer
			if err := json.Compact(&buf, v); err != nil {
				return Span{}, err
			}
			sp.Value = buf.String()
		}
		break
	}
	return sp, nil
}

// MarshalJSON writes plain text as a string and spans as typed objects.
// A span with no value is written as the object it was decoded from.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.kind == ContentPlain {
		return json.Marshal(c.text)
	}
	type span struct {
		Type  string `json:"type"`
		Value string `json:"value,omitempty"`
	}
	out := make([]any, 0, len(c.spans))
	for _, sp := range c.spans {
		if sp.Value == "" && rawObject(sp.Raw) {
			out = append(out, sp.Raw)
			continue
		}
		out = append(out, span{Type: sp.Type, Value: sp.Value})
	}
	return json.Marshal(out)
}

func rawObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
}
