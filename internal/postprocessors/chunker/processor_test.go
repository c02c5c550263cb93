package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultMaxBytes, p.MaxBytes())
	})

	t.Run("custom ceiling", func(t *testing.T) {
		p := New(WithMaxBytes(500))
		assert.Equal(t, 500, p.MaxBytes())
	})

	t.Run("non-positive values ignored", func(t *testing.T) {
		p := New(WithMaxBytes(0), WithMaxBytes(-3))
		assert.Equal(t, DefaultMaxBytes, p.MaxBytes())
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxBytes int
		want     []string
	}{
		{"empty", "", 10, nil},
		{"whitespace only", " \n\t ", 10, nil},
		{"single fragment", "a b c", 10, []string{"a b c"}},
		{"exact fit", "abcd efgh", 9, []string{"abcd efgh"}},
		{"one over", "abcd efgh", 8, []string{"abcd", "efgh"}},
		{"collapses whitespace", "a\n\nb\t c", 100, []string{"a b c"}},
		{"oversized word alone", "hi supercalifragilistic yo", 5, []string{"hi", "supercalifragilistic", "yo"}},
		{"oversized first word", "supercalifragilistic yo", 5, []string{"supercalifragilistic", "yo"}},
		{"no limit", "a b c", 0, []string{"a b c"}},
		{"multibyte counted in bytes", "ééé ééé", 6, []string{"ééé", "ééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.maxBytes))
		})
	}
}

func TestSplit_AlphaScenario(t *testing.T) {
	text := strings.Repeat("alpha ", 8333)

	fragments := Split(text, 40000)

	require.Len(t, fragments, 2)
	assert.Less(t, len(fragments[0]), 40000)
	assert.True(t, strings.HasSuffix(fragments[0], "alpha"))
	assert.Equal(t, 6666, len(strings.Fields(fragments[0])))
	assert.Equal(t, 8333-6666, len(strings.Fields(fragments[1])))
	assert.Equal(t, strings.TrimSpace(text), fragments[0]+" "+fragments[1])
}

func TestProcessor_Chunk(t *testing.T) {
	p := New(WithMaxBytes(9))

	chunks, err := p.Chunk(context.Background(), "paper", 3, "abcd efgh ijkl")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "paper_section_3_chunk_1", chunks[0].ID)
	assert.Equal(t, "abcd efgh", chunks[0].Content)
	assert.Equal(t, 3, chunks[0].SectionIndex)
	assert.Equal(t, 1, chunks[0].Index)
	assert.Equal(t, "paper", chunks[0].Source)

	assert.Equal(t, "paper_section_3_chunk_2", chunks[1].ID)
	assert.Equal(t, "ijkl", chunks[1].Content)
	assert.Equal(t, 2, chunks[1].Index)
}

func TestProcessor_Chunk_EmptyText(t *testing.T) {
	chunks, err := New().Chunk(context.Background(), "paper", 1, "   ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_Chunk_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Chunk(ctx, "paper", 1, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func FuzzSplit(f *testing.F) {
	f.Add("the quick brown fox", 5)
	f.Add("alpha alpha alpha", 11)
	f.Add("", 1)
	f.Add("ééé   x", 3)
	f.Add("one-very-long-word", 2)

	f.Fuzz(func(t *testing.T, text string, maxBytes int) {
		if maxBytes <= 0 || maxBytes > 1<<20 {
			maxBytes = 16
		}
		fragments := Split(text, maxBytes)
		words := strings.Fields(text)

		if len(words) == 0 {
			require.Empty(t, fragments)
			return
		}

		require.Equal(t, strings.Join(words, " "), strings.Join(fragments, " "))
		for _, frag := range fragments {
			require.NotEmpty(t, frag)
			if len(frag) > maxBytes {
				require.Len(t, strings.Fields(frag), 1, "only a single oversized word may exceed the ceiling")
			}
		}
	})
}
