// Package qdrant provides a vector store backed by a Qdrant server over gRPC.
// Each index maps to one collection.
package qdrant

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultAddr is the Qdrant gRPC endpoint used when none is configured.
const DefaultAddr = "localhost:6334"

// Payload keys.
const (
	payloadRecordID = "record_id"
	payloadMetadata = "metadata_json"
)

// pointNamespace derives stable point UUIDs from record IDs.
var pointNamespace = uuid.MustParse("6f0c3a4e-5b1d-4f3e-9a7c-2d8e1b0f4c6a")

// Config holds connection settings.
type Config struct {
	Addr   string
	APIKey string
	UseTLS bool
}

// Store implements driven.VectorStore on Qdrant collections.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	apiKey      string
}

// NewStore dials Qdrant. The connection is established lazily on first use.
func NewStore(cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	s := newStore(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), cfg.APIKey)
	s.conn = conn
	return s, nil
}

func newStore(points pb.PointsClient, collections pb.CollectionsClient, apiKey string) *Store {
	return &Store{points: points, collections: collections, apiKey: apiKey}
}

func (s *Store) withAuth(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

// PointID returns the UUID a record ID is stored under.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func distance(m domain.Metric) pb.Distance {
	if m == domain.MetricEuclidean {
		return pb.Distance_Euclid
	}
	return pb.Distance_Cosine
}

func wrap(op, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q: %w", op, name, domain.ErrIndexNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

// CreateIndexIfAbsent creates a collection unless it already exists.
func (s *Store) CreateIndexIfAbsent(ctx context.Context, spec domain.IndexSpec) (bool, error) {
	if spec.Dimension <= 0 {
		return false, fmt.Errorf("create index %q: dimension must be positive", spec.Name)
	}
	ctx = s.withAuth(ctx)

	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: spec.Name})
	if err != nil {
		return false, wrap("check collection", spec.Name, err)
	}
	if exists.GetResult().GetExists() {
		return false, nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distance(spec.Metric),
		}}},
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, wrap("create collection", spec.Name, err)
	}
	return true, nil
}

// Upsert writes the batch and waits for it to be applied.
func (s *Store) Upsert(ctx context.Context, name string, records []domain.IndexRecord) error {
	if len(records) > driven.MaxUpsertBatch {
		return fmt.Errorf("upsert %d records: %w", len(records), domain.ErrBatchTooLarge)
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %q: %w", r.ID, err)
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}}},
			Payload: map[string]*pb.Value{
				payloadRecordID: {Kind: &pb.Value_StringValue{StringValue: r.ID}},
				payloadMetadata: {Kind: &pb.Value_StringValue{StringValue: string(meta)}},
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(s.withAuth(ctx), &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return wrap("upsert into", name, err)
	}
	return nil
}

// Query searches the collection. Qdrant returns results best first for
// both distances.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	resp, err := s.points.Search(s.withAuth(ctx), &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, wrap("search", name, err)
	}

	matches := make([]domain.Match, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		id := pt.GetPayload()[payloadRecordID].GetStringValue()
		if id == "" {
			id = pt.GetId().GetUuid()
		}
		matches[i] = domain.Match{ID: id, Index: name, Score: float64(pt.GetScore())}
		if !includeMetadata {
			continue
		}
		if raw := pt.GetPayload()[payloadMetadata].GetStringValue(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &matches[i].Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata for %q: %w", id, err)
			}
		}
	}
	return matches, nil
}

// ListIndexNames returns collection names sorted by name.
// Qdrant does not record creation order.
func (s *Store) ListIndexNames(ctx context.Context) ([]string, error) {
	resp, err := s.collections.List(s.withAuth(ctx), &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	sort.Strings(names)
	return names, nil
}

// DeleteIndex drops the collection.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	ctx = s.withAuth(ctx)
	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return wrap("check collection", name, err)
	}
	if !exists.GetResult().GetExists() {
		return fmt.Errorf("delete %q: %w", name, domain.ErrIndexNotFound)
	}
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return wrap("delete collection", name, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
