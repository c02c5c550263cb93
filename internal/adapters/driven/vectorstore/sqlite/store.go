// Package sqlite provides a persistent single-file vector store backed by
// SQLite. Vectors are stored as little-endian float32 blobs and ranked by
// brute force in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/scoring"
	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "vectors.db"

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and applies
// pending migrations. If path is empty, defaults to ~/.texquery/data/vectors.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".texquery", "data", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// CreateIndexIfAbsent creates the index unless one with the same name exists.
func (s *Store) CreateIndexIfAbsent(ctx context.Context, spec domain.IndexSpec) (bool, error) {
	if spec.Dimension <= 0 {
		return false, fmt.Errorf("create index %q: dimension must be positive", spec.Name)
	}
	metric := spec.Metric
	if metric == "" {
		metric = domain.MetricCosine
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vector_indexes (name, dimension, metric)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, spec.Name, spec.Dimension, string(metric))
	if err != nil {
		return false, fmt.Errorf("creating index %q: %w", spec.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("creating index %q: %w", spec.Name, err)
	}
	return n == 1, nil
}

func (s *Store) spec(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, name string) (domain.IndexSpec, error) {
	spec := domain.IndexSpec{Name: name}
	var metric string
	err := q.QueryRowContext(ctx, "SELECT dimension, metric FROM vector_indexes WHERE name = ?", name).
		Scan(&spec.Dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return spec, fmt.Errorf("index %q: %w", name, domain.ErrIndexNotFound)
	}
	if err != nil {
		return spec, fmt.Errorf("reading index %q: %w", name, err)
	}
	spec.Metric = domain.Metric(metric)
	return spec, nil
}

// Upsert writes the batch in a single transaction. An overwritten record
// keeps its original insertion position.
func (s *Store) Upsert(ctx context.Context, name string, records []domain.IndexRecord) error {
	if len(records) > driven.MaxUpsertBatch {
		return fmt.Errorf("upsert %d records: %w", len(records), domain.ErrBatchTooLarge)
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	spec, err := s.spec(ctx, tx, name)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records (index_name, id, vector, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) != spec.Dimension {
			return fmt.Errorf("record %q has %d dimensions, index %q wants %d: %w",
				r.ID, len(r.Vector), name, spec.Dimension, domain.ErrDimensionMismatch)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %q: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, name, r.ID, float32SliceToBytes(r.Vector), string(meta)); err != nil {
			return fmt.Errorf("upserting %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

type row struct {
	id   string
	meta string
}

// Query ranks every record in the index against vector and returns the top K.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	spec, err := s.spec(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("query %q with %d dimensions: %w", name, len(vector), domain.ErrDimensionMismatch)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, metadata FROM vector_records WHERE index_name = ? ORDER BY seq", name)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", name, err)
	}
	defer rows.Close()

	var (
		candidates []row
		scored     []scoring.Scored
	)
	for rows.Next() {
		var (
			r    row
			blob []byte
		)
		if err := rows.Scan(&r.id, &blob, &r.meta); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		scored = append(scored, scoring.Scored{
			Pos:   len(candidates),
			Score: scoring.Score(spec.Metric, vector, bytesToFloat32Slice(blob)),
		})
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	scored = scoring.Rank(spec.Metric, scored, topK)
	matches := make([]domain.Match, len(scored))
	for i, sc := range scored {
		c := candidates[sc.Pos]
		matches[i] = domain.Match{ID: c.id, Index: name, Score: sc.Score}
		if includeMetadata {
			if err := json.Unmarshal([]byte(c.meta), &matches[i].Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata for %q: %w", c.id, err)
			}
		}
	}
	return matches, nil
}

// ListIndexNames returns index names in creation order.
func (s *Store) ListIndexNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM vector_indexes ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning index name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteIndex removes the index and all of its records.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_records WHERE index_name = ?", name); err != nil {
		return fmt.Errorf("deleting records of %q: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM vector_indexes WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting index %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %q: %w", name, domain.ErrIndexNotFound)
	}
	return tx.Commit()
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
