package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/memory"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

const testDim = 8

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService with deterministic
// pseudo-random vectors derived from a hash of the text.
type mockEmbedder struct {
	mu       sync.Mutex
	calls    int
	dims     int
	failOn   map[string]error
	override map[string][]float32
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: testDim, failOn: map[string]error{}, override: map[string][]float32{}}
}

func hashVector(text string, dims int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	v := make([]float32, dims)
	for i := range v {
		v[i] = r.Float32()*2 - 1
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.failOn[text]
	vec, ok := m.override[text]
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if ok {
		return vec, nil
	}
	return hashVector(text, m.dims), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// recordingStore wraps the memory store, recording calls and injecting failures.
type recordingStore struct {
	*memory.Store

	mu         sync.Mutex
	listCalls  int
	upserts    []int
	createErr  error
	listErr    error
	hideList   bool
	upsertErr  func(call int) error
	queryErr   map[string]error
	queryCalls []string

	// Stalled calls block until their context ends.
	stallUpsert bool
	stallQuery  map[string]bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: memory.NewStore(), queryErr: map[string]error{}, stallQuery: map[string]bool{}}
}

func stall(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingStore) ListIndexNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.hideList {
		return []string{}, nil
	}
	return s.Store.ListIndexNames(ctx)
}

func (s *recordingStore) CreateIndexIfAbsent(ctx context.Context, spec domain.IndexSpec) (bool, error) {
	if s.createErr != nil {
		// Simulate a concurrent run winning the race.
		_, _ = s.Store.CreateIndexIfAbsent(ctx, spec)
		return false, s.createErr
	}
	return s.Store.CreateIndexIfAbsent(ctx, spec)
}

func (s *recordingStore) Upsert(ctx context.Context, name string, records []domain.IndexRecord) error {
	s.mu.Lock()
	s.upserts = append(s.upserts, len(records))
	call := len(s.upserts)
	s.mu.Unlock()
	if s.stallUpsert {
		return stall(ctx)
	}
	if s.upsertErr != nil {
		if err := s.upsertErr(call); err != nil {
			return err
		}
	}
	return s.Store.Upsert(ctx, name, records)
}

func (s *recordingStore) Query(ctx context.Context, name string, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	s.mu.Lock()
	s.queryCalls = append(s.queryCalls, name)
	s.mu.Unlock()
	if s.stallQuery[name] {
		return nil, stall(ctx)
	}
	if err := s.queryErr[name]; err != nil {
		return nil, err
	}
	return s.Store.Query(ctx, name, vector, topK, includeMetadata)
}

// mockLLM implements driven.LLMService.
type mockLLM struct {
	response string
	err      error
	calls    int
	system   string
	user     string
	opts     driven.CompletionOptions
}

func (m *mockLLM) Complete(_ context.Context, system, user string, opts driven.CompletionOptions) (string, error) {
	m.calls++
	m.system, m.user, m.opts = system, user, opts
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockSource implements driven.DocumentSource.
type mockSource struct {
	refs    []driven.SourceRef
	docs    map[string]*domain.Document
	loadErr map[string]error
	listErr error
}

func (m *mockSource) List(_ context.Context) ([]driven.SourceRef, error) {
	return m.refs, m.listErr
}

func (m *mockSource) Load(_ context.Context, ref driven.SourceRef) (*domain.Document, error) {
	if err := m.loadErr[ref.ID]; err != nil {
		return nil, err
	}
	return m.docs[ref.ID], nil
}

// mockSpeaker implements driven.Speaker.
type mockSpeaker struct {
	available bool
	err       error
	spoken    []string
}

func (m *mockSpeaker) Speak(_ context.Context, text string) error {
	m.spoken = append(m.spoken, text)
	return m.err
}

func (m *mockSpeaker) Available() bool { return m.available }

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockObserver implements driven.PipelineObserver.
type mockObserver struct {
	mu      sync.Mutex
	chunks  map[string]int
	batches map[string]int
	queries map[string]int
}

func newMockObserver() *mockObserver {
	return &mockObserver{chunks: map[string]int{}, batches: map[string]int{}, queries: map[string]int{}}
}

func (m *mockObserver) ChunkProcessed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[outcome]++
}

func (m *mockObserver) BatchUpserted(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[outcome]++
}

func (m *mockObserver) QueryAnswered(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[outcome]++
}
