package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

const validDoc = `{
  "document": {
    "title": "On Alpha",
    "metadata": {"authors": [{"name": "A. Author", "affiliations": ["Lab"]}]},
    "content": [
      {"section": "Intro", "type": "section", "content": "plain text", "references": [{"label": "r1"}]},
      {"type": "section", "content": [{"type": "text", "value": "x"}, {"type": "inline_math", "value": "y"}]},
      {"type": "figure", "figure_caption": "A plot", "image_file": "fig1.png", "content": null}
    ]
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPattern, s.pattern)
	assert.Equal(t, DefaultDebounce, s.debounce)

	_, err = New(t.TempDir(), "[")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestSource_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", validDoc)
	writeFile(t, dir, "a.json", validDoc)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.json", validDoc)
	writeFile(t, dir, "nested/c.json", validDoc)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.json"), 0o755))

	t.Run("top level", func(t *testing.T) {
		s, err := New(dir, "*.json")
		require.NoError(t, err)

		refs, err := s.List(context.Background())
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, driven.SourceRef{ID: "a", Path: filepath.Join(dir, "a.json")}, refs[0])
		assert.Equal(t, "b", refs[1].ID)
	})

	t.Run("recursive", func(t *testing.T) {
		s, err := New(dir, "**/*.json")
		require.NoError(t, err)

		refs, err := s.List(context.Background())
		require.NoError(t, err)
		ids := make([]string, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})
}

func TestSource_List_MissingDirectoryIsFatal(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)

	_, err = s.List(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestSource_List_FileIsFatal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.json", validDoc)
	s, err := New(path, "")
	require.NoError(t, err)

	_, err = s.List(context.Background())
	assert.True(t, domain.IsFatal(err))
}

func TestSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.json", validDoc)
	s, err := New(dir, "")
	require.NoError(t, err)

	doc, err := s.Load(context.Background(), RefFor(path))
	require.NoError(t, err)

	assert.Equal(t, "On Alpha", doc.Title)
	require.Len(t, doc.Metadata.Authors, 1)
	assert.Equal(t, []string{"Lab"}, doc.Metadata.Authors[0].Affiliations)
	require.Len(t, doc.Content, 3)
	assert.Equal(t, []string{"r1"}, doc.Content[0].ReferenceLabels())

	text, err := doc.Content[1].Content.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "x $y$", text)
	assert.Equal(t, "fig1.png", doc.Content[2].ImageFile)
}

func TestSource_Load_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"document": `},
		{"missing envelope", `{"title": "x"}`},
		{"wrong content type", `{"document": {"content": [{"content": 42}]}}`},
		{"sections not an array", `{"document": {"content": "oops"}}`},
		{"author not an object", `{"document": {"metadata": {"authors": ["x"]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "bad.json", tt.content)
			s, err := New(dir, "")
			require.NoError(t, err)

			_, err = s.Load(context.Background(), RefFor(path))
			require.Error(t, err)
			assert.Equal(t, domain.KindInput, domain.KindOf(err))
			assert.ErrorIs(t, err, domain.ErrMalformedDocument)
			assert.Contains(t, err.Error(), `"bad"`)
		})
	}
}

func TestSource_Load_MissingFile(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Load(context.Background(), driven.SourceRef{ID: "gone", Path: "/nonexistent/gone.json"})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))
}

func TestRefFor(t *testing.T) {
	assert.Equal(t, driven.SourceRef{ID: "paper.v2", Path: "in/paper.v2.json"}, RefFor("in/paper.v2.json"))
	assert.Equal(t, "noext", RefFor("noext").ID)
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "doc.json", validDoc)
	hidden := writeFile(t, dir, ".doc.json", validDoc)
	other := writeFile(t, dir, "doc.txt", "x")
	sub := filepath.Join(dir, "sub.json")
	require.NoError(t, os.Mkdir(sub, 0o755))

	s, err := New(dir, "*.json")
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create", file, fsnotify.Create, true},
		{"write", file, fsnotify.Write, true},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, true},
		{"chmod only", file, fsnotify.Chmod, false},
		{"remove", file, fsnotify.Remove, false},
		{"rename", file, fsnotify.Rename, false},
		{"hidden", hidden, fsnotify.Create, false},
		{"pattern mismatch", other, fsnotify.Create, false},
		{"directory", sub, fsnotify.Create, false},
		{"vanished", filepath.Join(dir, "gone.json"), fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := s.handleEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, "doc", ref.ID)
			}
		})
	}
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "*.json", WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []driven.SourceRef
	)
	got := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(ref driven.SourceRef) {
			mu.Lock()
			seen = append(seen, ref)
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "new.json", validDoc)
	writeFile(t, dir, "skip.txt", "x")

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for document event")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, "new", seen[0].ID)
	for _, ref := range seen {
		assert.Equal(t, "new", ref.ID, "events are coalesced per file and filtered by pattern")
	}
}

func TestSource_Watch_MissingDirectory(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)

	err = s.Watch(context.Background(), func(driven.SourceRef) {})
	assert.True(t, domain.IsFatal(err))
}
