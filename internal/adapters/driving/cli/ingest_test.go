package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [files...]", ingestCmd.Use)
}

func TestIngestCmd_All(t *testing.T) {
	ts := setupTestServices(t)
	ts.ingest.reports = []domain.IngestReport{
		{Source: "paper", IndexName: "index-paper", VectorCount: 12},
		{Source: "notes", IndexName: "index-notes", VectorCount: 4, Skipped: 1},
	}

	out, err := run(t, "ingest")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.ingest.allRuns)
	assert.Contains(t, out, "paper: stored 12 vectors in index-paper")
	assert.Contains(t, out, "notes: stored 4 vectors in index-notes (1 skipped, 0 failed)")
	assert.Contains(t, out, "Available indexes:")
	assert.Contains(t, out, "- index-paper")
}

func TestIngestCmd_Files(t *testing.T) {
	ts := setupTestServices(t)

	out, err := run(t, "ingest", "json_output/paper.json", "other/notes.json")

	require.NoError(t, err)
	assert.Zero(t, ts.ingest.allRuns)
	assert.Equal(t, []driven.SourceRef{
		{ID: "paper", Path: "json_output/paper.json"},
		{ID: "notes", Path: "other/notes.json"},
	}, ts.ingest.refs)
	assert.Contains(t, out, "paper: stored 3 vectors in index-paper")
}

func TestIngestCmd_MalformedFileContinues(t *testing.T) {
	ts := setupTestServices(t)
	ts.ingest.refErr = map[string]error{
		"bad": domain.InputError("decode", "bad", domain.ErrMalformedDocument),
	}

	out, err := run(t, "ingest", "bad.json", "good.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
	assert.Equal(t, 1, ExitCode(err))
	assert.Len(t, ts.ingest.refs, 2)
	assert.Contains(t, out, "good: stored 3 vectors")
	assert.Contains(t, out, "Available indexes:")
}

func TestIngestCmd_FatalStops(t *testing.T) {
	ts := setupTestServices(t)
	ts.ingest.allErr = domain.FatalError("list", "json_output", errors.New("no such directory"))

	out, err := run(t, "ingest")

	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	assert.NotContains(t, out, "Available indexes:")
}

func TestIngestCmd_FilesUnsupported(t *testing.T) {
	ts := setupTestServices(t)
	ts.svc.RefFor = nil

	_, err := run(t, "ingest", "paper.json")

	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}
