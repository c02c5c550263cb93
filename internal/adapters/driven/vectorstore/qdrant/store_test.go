package qdrant

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// fakeCollections implements the subset of pb.CollectionsClient the store uses.
type fakeCollections struct {
	pb.CollectionsClient
	existing map[string]bool
	created  []*pb.CreateCollection
	deleted  []string
	apiKeys  []string
}

func (f *fakeCollections) record(ctx context.Context) {
	md, _ := metadata.FromOutgoingContext(ctx)
	f.apiKeys = append(f.apiKeys, md.Get("api-key")...)
}

func (f *fakeCollections) CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, _ ...grpc.CallOption) (*pb.CollectionExistsResponse, error) {
	f.record(ctx)
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: f.existing[in.CollectionName]}}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	f.existing[in.CollectionName] = true
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	resp := &pb.ListCollectionsResponse{}
	for name := range f.existing {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.deleted = append(f.deleted, in.CollectionName)
	delete(f.existing, in.CollectionName)
	return &pb.CollectionOperationResponse{Result: true}, nil
}

// fakePoints implements the subset of pb.PointsClient the store uses.
type fakePoints struct {
	pb.PointsClient
	upserts   []*pb.UpsertPoints
	searchErr error
	results   []*pb.ScoredPoint
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserts = append(f.upserts, in)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &pb.SearchResponse{Result: f.results}, nil
}

func TestStore_CreateIndexIfAbsent(t *testing.T) {
	cols := &fakeCollections{existing: map[string]bool{}}
	s := newStore(&fakePoints{}, cols, "secret")
	ctx := context.Background()

	created, err := s.CreateIndexIfAbsent(ctx, domain.IndexSpec{Name: "index-a", Dimension: 4, Metric: domain.MetricEuclidean})
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, cols.created, 1)
	params := cols.created[0].VectorsConfig.GetParams()
	assert.Equal(t, uint64(4), params.Size)
	assert.Equal(t, pb.Distance_Euclid, params.Distance)

	created, err = s.CreateIndexIfAbsent(ctx, domain.IndexSpec{Name: "index-a", Dimension: 4})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, cols.created, 1)
	assert.Contains(t, cols.apiKeys, "secret")
}

func TestStore_Upsert(t *testing.T) {
	points := &fakePoints{}
	s := newStore(points, &fakeCollections{existing: map[string]bool{}}, "")

	err := s.Upsert(context.Background(), "index-a", []domain.IndexRecord{
		{ID: "paper_section_1_chunk_1", Vector: []float32{1, 2}, Metadata: domain.Metadata{Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, points.upserts, 1)

	req := points.upserts[0]
	assert.Equal(t, "index-a", req.CollectionName)
	require.NotNil(t, req.Wait)
	assert.True(t, *req.Wait)
	pt := req.Points[0]
	assert.Equal(t, PointID("paper_section_1_chunk_1"), pt.Id.GetUuid())
	assert.Equal(t, "paper_section_1_chunk_1", pt.Payload[payloadRecordID].GetStringValue())
	assert.Contains(t, pt.Payload[payloadMetadata].GetStringValue(), `"content":"hi"`)
}

func TestStore_Query(t *testing.T) {
	points := &fakePoints{results: []*pb.ScoredPoint{
		{
			Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID("a")}},
			Score: 0.9,
			Payload: map[string]*pb.Value{
				payloadRecordID: {Kind: &pb.Value_StringValue{StringValue: "a"}},
				payloadMetadata: {Kind: &pb.Value_StringValue{StringValue: `{"content":"alpha","section_title":"Intro"}`}},
			},
		},
	}}
	s := newStore(points, &fakeCollections{existing: map[string]bool{}}, "")

	matches, err := s.Query(context.Background(), "index-a", []float32{1, 0}, 5, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "index-a", matches[0].Index)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)
	assert.Equal(t, "alpha", matches[0].Metadata.Content)
	assert.Equal(t, "Intro", matches[0].Metadata.SectionTitle)
}

func TestStore_Query_NotFound(t *testing.T) {
	points := &fakePoints{searchErr: status.Error(codes.NotFound, "Collection `x` doesn't exist")}
	s := newStore(points, &fakeCollections{existing: map[string]bool{}}, "")

	_, err := s.Query(context.Background(), "x", []float32{1}, 5, false)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	cols := &fakeCollections{existing: map[string]bool{"index-b": true, "index-a": true}}
	s := newStore(&fakePoints{}, cols, "")
	ctx := context.Background()

	names, err := s.ListIndexNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"index-a", "index-b"}, names)

	require.NoError(t, s.DeleteIndex(ctx, "index-a"))
	assert.Equal(t, []string{"index-a"}, cols.deleted)
	assert.ErrorIs(t, s.DeleteIndex(ctx, "index-a"), domain.ErrIndexNotFound)
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("x"), PointID("x"))
	assert.NotEqual(t, PointID("x"), PointID("y"))
}

func TestStore_CloseWithoutConn(t *testing.T) {
	assert.NoError(t, newStore(nil, nil, "").Close())
}
