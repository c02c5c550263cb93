package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

type mockIngest struct {
	reports []domain.IngestReport
	allErr  error
	refErr  map[string]error
	refs    []driven.SourceRef
	allRuns int
}

func (m *mockIngest) Ingest(_ context.Context, _ *domain.Document, sourceID string) (domain.IngestReport, error) {
	return domain.IngestReport{Source: sourceID}, nil
}

func (m *mockIngest) IngestRef(_ context.Context, ref driven.SourceRef) (domain.IngestReport, error) {
	m.refs = append(m.refs, ref)
	if err := m.refErr[ref.ID]; err != nil {
		return domain.IngestReport{Source: ref.ID}, err
	}
	return domain.IngestReport{Source: ref.ID, IndexName: domain.IndexNameFor(ref.ID), VectorCount: 3}, nil
}

func (m *mockIngest) IngestAll(_ context.Context) ([]domain.IngestReport, error) {
	m.allRuns++
	return m.reports, m.allErr
}

type mockAnswers struct {
	indexes  []string
	matches  []domain.Match
	text     string
	err      error
	requests []domain.AnswerRequest
	queries  []string
	targets  []domain.Target
}

func (m *mockAnswers) Retrieve(_ context.Context, query string, target domain.Target) (domain.QueryResult, error) {
	m.queries = append(m.queries, query)
	m.targets = append(m.targets, target)
	if m.err != nil {
		return domain.QueryResult{}, m.err
	}
	return domain.QueryResult{Query: query, Target: target, Matches: m.matches}, nil
}

func (m *mockAnswers) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{Text: m.text, Matches: m.matches}, nil
}

func (m *mockAnswers) Indexes(_ context.Context) ([]string, error) {
	return m.indexes, nil
}

type mockIndexAdmin struct {
	names   []string
	deleted []string
	resets  int
	err     error
}

func (m *mockIndexAdmin) List(_ context.Context) ([]string, error) { return m.names, m.err }

func (m *mockIndexAdmin) Delete(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockIndexAdmin) Reset(_ context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.resets++
	return len(m.names), nil
}

// mockSource fires each ref once from Watch, then stops the run.
type mockSource struct {
	fire   []driven.SourceRef
	stop   context.CancelFunc
	err    error
	listed bool
}

func (m *mockSource) List(_ context.Context) ([]driven.SourceRef, error) {
	m.listed = true
	return m.fire, nil
}

func (m *mockSource) Load(_ context.Context, ref driven.SourceRef) (*domain.Document, error) {
	return &domain.Document{}, nil
}

func (m *mockSource) Watch(ctx context.Context, fn func(driven.SourceRef)) error {
	if m.err != nil {
		return m.err
	}
	for _, ref := range m.fire {
		fn(ref)
	}
	if m.stop != nil {
		m.stop()
	}
	<-ctx.Done()
	return nil
}

type testServices struct {
	ingest  *mockIngest
	answers *mockAnswers
	indexes *mockIndexAdmin
	source  *mockSource
	svc     *Services
}

func refFromPath(path string) driven.SourceRef {
	base := filepath.Base(path)
	return driven.SourceRef{ID: strings.TrimSuffix(base, filepath.Ext(base)), Path: path}
}

// setupTestServices installs fakes and restores package state on cleanup.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		ingest:  &mockIngest{},
		answers: &mockAnswers{indexes: []string{"index-paper"}, text: "forty-two"},
		indexes: &mockIndexAdmin{names: []string{"index-a", "index-b"}},
		source:  &mockSource{},
	}
	ts.svc = &Services{
		Ingest:      ts.ingest,
		Answers:     ts.answers,
		Indexes:     ts.indexes,
		Source:      ts.source,
		RefFor:      refFromPath,
		Temperature: 0.3,
	}
	SetServices(ts.svc)
	t.Cleanup(func() {
		SetServices(nil)
		SetBootstrap(nil)
		resetCommands(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return ts
}

// resetCommands clears flag values and the contexts cobra keeps between runs.
func resetCommands(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(nil) //nolint:staticcheck // cobra substitutes the parent context
	for _, c := range cmd.Commands() {
		resetCommands(c)
	}
}

// run executes rootCmd with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
