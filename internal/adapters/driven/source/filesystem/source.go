// Package filesystem provides a document source that reads structured
// JSON documents from a local directory.
package filesystem

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure Source implements the interfaces.
var _ driven.WatchableSource = (*Source)(nil)

// Defaults.
const (
	DefaultPattern  = "*.json"
	DefaultDebounce = 200 * time.Millisecond
)

//go:embed document.schema.json
var documentSchema string

// Source lists and decodes documents under a directory.
type Source struct {
	dir      string
	pattern  string
	schema   *gojsonschema.Schema
	debounce time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithDebounce sets how long Watch waits for a file to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New creates a source for dir. Files are matched against pattern, a
// doublestar glob relative to dir, so "**/*.json" descends into subdirectories.
func New(dir, pattern string, opts ...Option) (*Source, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, domain.FatalError("open source", pattern, errors.New("invalid glob pattern"))
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	s := &Source{dir: dir, pattern: pattern, schema: schema, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the input directory.
func (s *Source) Dir() string { return s.dir }

// List returns every matching file in lexical path order.
// A missing or unreadable directory is fatal.
func (s *Source) List(ctx context.Context) ([]driven.SourceRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, domain.FatalError("read input directory", s.dir, err)
	}
	if !info.IsDir() {
		return nil, domain.FatalError("read input directory", s.dir, errors.New("not a directory"))
	}

	fsys := os.DirFS(s.dir)
	matches, err := doublestar.Glob(fsys, s.pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, domain.FatalError("read input directory", s.dir, err)
	}
	sort.Strings(matches)

	refs := make([]driven.SourceRef, 0, len(matches))
	for _, m := range matches {
		if isHidden(m) {
			continue
		}
		refs = append(refs, RefFor(filepath.Join(s.dir, filepath.FromSlash(m))))
	}
	logger.Debug("found %d documents in %s", len(refs), s.dir)
	return refs, nil
}

// RefFor names the document at path. The ID is the file name without
// its extension.
func RefFor(path string) driven.SourceRef {
	base := filepath.Base(path)
	return driven.SourceRef{
		ID:   strings.TrimSuffix(base, filepath.Ext(base)),
		Path: path,
	}
}

// Load reads, validates and decodes one document. Unreadable, invalid or
// non-conforming files are input errors.
func (s *Source) Load(ctx context.Context, ref driven.SourceRef) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, domain.InputError("read document", ref.ID, err)
	}
	return s.Decode(data, ref.ID)
}

// Decode validates raw JSON against the document schema and decodes it.
func (s *Source) Decode(data []byte, id string) (*domain.Document, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, domain.InputError("decode document", id, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, domain.InputError("validate document", id,
			fmt.Errorf("%w: %s", domain.ErrMalformedDocument, strings.Join(msgs, "; ")))
	}

	var file domain.DocumentFile
	if err := json.Unmarshal(data, &file); err != nil {
		if !errors.Is(err, domain.ErrMalformedDocument) {
			err = fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
		}
		return nil, domain.InputError("decode document", id, err)
	}
	return &file.Document, nil
}

// Watch reports created or rewritten documents until ctx is done.
// Events for one file are coalesced until it has been quiet for the
// debounce interval. fn is never called concurrently. Only the
// top-level directory is watched.
func (s *Source) Watch(ctx context.Context, fn func(driven.SourceRef)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return domain.FatalError("watch input directory", s.dir, err)
	}
	logger.L().Info().Str("path", s.dir).Str("pattern", s.pattern).Msg("watching for documents")

	var (
		mu     sync.Mutex
		callMu sync.Mutex
		timers = make(map[string]*time.Timer)
		wg     sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for path, t := range timers {
			if t.Stop() {
				wg.Done()
			}
			delete(timers, path)
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ref, ok := s.handleEvent(event)
			if !ok {
				continue
			}
			mu.Lock()
			if t, exists := timers[ref.Path]; exists && t.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timers[ref.Path] = time.AfterFunc(s.debounce, func() {
				defer wg.Done()
				mu.Lock()
				delete(timers, ref.Path)
				mu.Unlock()
				callMu.Lock()
				defer callMu.Unlock()
				if ctx.Err() == nil {
					fn(ref)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.L().Error().Err(err).Str("path", s.dir).Msg("watcher error")
		}
	}
}

// handleEvent maps a filesystem event to a document reference. Only
// creates and writes of matching, visible regular files count.
func (s *Source) handleEvent(event fsnotify.Event) (driven.SourceRef, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return driven.SourceRef{}, false
	}
	rel, err := filepath.Rel(s.dir, event.Name)
	if err != nil || isHidden(filepath.ToSlash(rel)) {
		return driven.SourceRef{}, false
	}
	if ok, _ := doublestar.Match(s.pattern, filepath.ToSlash(rel)); !ok {
		return driven.SourceRef{}, false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return driven.SourceRef{}, false
	}
	return RefFor(event.Name), true
}

// isHidden reports whether any element of the slash-separated path starts with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
