package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

type mockMetrics struct {
	addr string
	err  error
}

func (m *mockMetrics) Serve(ctx context.Context, addr string) error {
	m.addr = addr
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return nil
}

func runWithContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestWatchCmd_IngestsEvents(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.source.fire = []driven.SourceRef{{ID: "fresh", Path: "json_output/fresh.json"}}
	ts.source.stop = cancel

	out, err := runWithContext(t, ctx, "watch", "--initial=false")

	require.NoError(t, err)
	assert.Zero(t, ts.ingest.allRuns)
	assert.Equal(t, ts.source.fire, ts.ingest.refs)
	assert.Contains(t, out, "Watching for documents.")
	assert.Contains(t, out, "fresh: stored 3 vectors in index-fresh")
}

func TestWatchCmd_InitialIngest(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.source.stop = cancel
	ts.ingest.reports = []domain.IngestReport{{Source: "old", IndexName: "index-old", VectorCount: 7}}

	out, err := runWithContext(t, ctx, "watch")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.ingest.allRuns)
	assert.Contains(t, out, "old: stored 7 vectors in index-old")
}

func TestWatchCmd_FailedEventKeepsWatching(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.source.fire = []driven.SourceRef{{ID: "bad"}, {ID: "good"}}
	ts.source.stop = cancel
	ts.ingest.refErr = map[string]error{"bad": domain.InputError("decode", "bad", domain.ErrMalformedDocument)}

	out, err := runWithContext(t, ctx, "watch", "--initial=false")

	require.NoError(t, err)
	assert.Len(t, ts.ingest.refs, 2)
	assert.Contains(t, out, "good: stored 3 vectors")
	assert.NotContains(t, out, "bad: stored")
}

func TestWatchCmd_ServesMetrics(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.source.stop = cancel
	m := &mockMetrics{}
	ts.svc.Metrics = m
	ts.svc.MetricsAddr = "127.0.0.1:9464"

	_, err := runWithContext(t, ctx, "watch", "--initial=false")

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9464", m.addr)
}

func TestWatchCmd_MetricsFailureStops(t *testing.T) {
	ts := setupTestServices(t)
	ts.svc.Metrics = &mockMetrics{err: errors.New("address in use")}
	ts.svc.MetricsAddr = ":9464"

	_, err := runWithContext(t, context.Background(), "watch", "--initial=false")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}

func TestWatchCmd_WatchError(t *testing.T) {
	ts := setupTestServices(t)
	ts.source.err = domain.FatalError("watch", "json_output", errors.New("no such directory"))

	_, err := runWithContext(t, context.Background(), "watch", "--initial=false")

	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestWatchCmd_NoSource(t *testing.T) {
	ts := setupTestServices(t)
	ts.svc.Source = nil

	_, err := run(t, "watch")

	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}
