package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// --- mocks ---

type mockPoints struct {
	upsertResp *pb.PointsOperationResponse
	upsertErr  error
	upsertReq  *pb.UpsertPoints
	searchResp *pb.SearchResponse
	searchErr  error
	searchReq  *pb.SearchPoints
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return m.upsertResp, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searchReq = in
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	listResp   *pb.ListCollectionsResponse
	listErr    error
	getResp    *pb.GetCollectionInfoResponse
	getErr     error
	createResp *pb.CollectionOperationResponse
	createErr  error
	deleteResp *pb.CollectionOperationResponse
	deleteErr  error
	created    bool
	deleted    bool
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Get(_ context.Context, _ *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	return m.getResp, m.getErr
}

func (m *mockCollections) Create(_ context.Context, _ *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = true
	return m.createResp, m.createErr
}

func (m *mockCollections) Delete(_ context.Context, _ *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.deleted = true
	return m.deleteResp, m.deleteErr
}

func collectionInfo(dims uint64) *pb.GetCollectionInfoResponse {
	return &pb.GetCollectionInfoResponse{
		Result: &pb.CollectionInfo{
			Config: &pb.CollectionConfig{
				Params: &pb.CollectionParams{
					VectorsConfig: &pb.VectorsConfig{
						Config: &pb.VectorsConfig_Params{
							Params: &pb.VectorParams{Size: dims, Distance: pb.Distance_Cosine},
						},
					},
				},
			},
		},
	}
}

func scoredPoint(id, name, typ string, score float32, extra map[string]*pb.Value) *pb.ScoredPoint {
	payload := map[string]*pb.Value{
		"id":   strValue(id),
		"name": strValue(name),
		"type": strValue(typ),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return &pb.ScoredPoint{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(id)}},
		Score:   score,
		Payload: payload,
	}
}

// --- tests ---

func TestSearch_NormalizesHits(t *testing.T) {
	tags := &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: []*pb.Value{
		strValue("beach"), strValue("romantic"),
	}}}}
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
			scoredPoint("city_danang", "Da Nang", "City", 0.93, map[string]*pb.Value{
				"city": strValue("Da Nang"),
				"tags": tags,
			}),
			scoredPoint("attr_mykhe", "My Khe Beach", "Attraction", 0.88, nil),
		}},
	}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	hits, err := vs.Search(context.Background(), []float32{0.1, 0.2}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "city_danang" || hits[0].Meta.Name != "Da Nang" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits must be in descending score order")
	}
	if len(hits[0].Meta.Tags) != 2 || hits[0].Meta.Tags[0] != "beach" {
		t.Errorf("tags not normalized: %v", hits[0].Meta.Tags)
	}
	if hits[1].Meta.City != "" {
		t.Errorf("absent payload field should stay empty, got %q", hits[1].Meta.City)
	}
}

func TestSearch_RespectsTopK(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		scoredPoint("a", "A", "City", 0.91, nil),
		scoredPoint("b", "B", "City", 0.74, nil),
		scoredPoint("c", "C", "City", 0.52, nil),
	}}}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	hits, err := vs.Search(context.Background(), []float32{1}, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.searchReq.GetLimit() != 3 {
		t.Errorf("limit = %d, want 3", pts.searchReq.GetLimit())
	}
	if len(hits) > 3 {
		t.Fatalf("got %d hits, want at most 3", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits out of order at %d: %.2f > %.2f", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestSearch_EmptyVector(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "travel")
	_, err := vs.Search(context.Background(), nil, 5, nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "travel")
	if _, err := vs.Search(context.Background(), []float32{1}, 0, nil); err == nil {
		t.Fatal("expected error for top_k=0")
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	pts := &mockPoints{searchErr: status.Error(codes.Unavailable, "connection refused")}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	_, err := vs.Search(context.Background(), []float32{1}, 5, nil)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !domain.IsTransient(err) {
		t.Error("unavailable index must be retryable")
	}

	pts.searchErr = status.Error(codes.NotFound, "collection travel doesn't exist")
	_, err = vs.Search(context.Background(), []float32{1}, 5, nil)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable for missing collection, got %v", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	pts := &mockPoints{searchErr: status.Error(codes.InvalidArgument, "vector dimension error: expected 768, got 1536")}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	_, err := vs.Search(context.Background(), []float32{1}, 5, nil)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_Filter(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{}}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	_, err := vs.Search(context.Background(), []float32{1}, 5, map[string]string{"type": "Hotel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts.searchReq.GetFilter().GetMust()) != 1 {
		t.Fatal("expected one filter condition")
	}
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	cols := &mockCollections{
		listResp:   &pb.ListCollectionsResponse{},
		createResp: &pb.CollectionOperationResponse{Result: true},
	}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cols.created {
		t.Error("expected collection creation")
	}
}

func TestEnsureCollection_MatchingDimensionNoop(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "travel"}}},
		getResp:  collectionInfo(768),
	}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created || cols.deleted {
		t.Error("matching collection must not be touched")
	}
}

func TestEnsureCollection_MismatchWithoutRecreate(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "travel"}}},
		getResp:  collectionInfo(1536),
	}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	err := vs.EnsureCollection(context.Background(), 768, false)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEnsureCollection_RecreatesOnMismatch(t *testing.T) {
	cols := &mockCollections{
		listResp:   &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "travel"}}},
		getResp:    collectionInfo(1536),
		deleteResp: &pb.CollectionOperationResponse{Result: true},
		createResp: &pb.CollectionOperationResponse{Result: true},
	}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cols.deleted || !cols.created {
		t.Error("expected drop and recreate")
	}
}

func TestUpsert_BuildsDeterministicPoints(t *testing.T) {
	pts := &mockPoints{upsertResp: &pb.PointsOperationResponse{}}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	rec := VectorRecord{
		ItemID:    "city_danang",
		Embedding: []float32{0.1, 0.2},
		Meta:      ItemMeta{Name: "Da Nang", Type: "City", Tags: []string{"beach"}},
	}
	if err := vs.Upsert(context.Background(), []VectorRecord{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := pts.upsertReq.GetPoints()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if got := points[0].GetId().GetUuid(); got != PointID("city_danang") {
		t.Errorf("point id not deterministic: %s", got)
	}
	if points[0].GetPayload()["id"].GetStringValue() != "city_danang" {
		t.Error("payload must carry the catalog id")
	}
	if PointID("city_danang") != PointID("city_danang") {
		t.Error("PointID must be stable")
	}
	if PointID("city_danang") == PointID("city_hanoi") {
		t.Error("distinct items must map to distinct points")
	}
}

func TestPing(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{listResp: &pb.ListCollectionsResponse{}}, "travel")
	if err := vs.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	down := NewWithClients(&mockPoints{}, &mockCollections{listErr: status.Error(codes.Unavailable, "down")}, "travel")
	if err := down.Ping(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	if err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.upsertReq != nil {
		t.Error("empty upsert must not hit the index")
	}
}

func TestMetaFromItem_Clamps(t *testing.T) {
	long := strings.Repeat("x", 900)
	item := domain.CatalogItem{
		ID: "a", Type: domain.TypeAttraction, Name: "A",
		Description: long, SemanticText: long,
	}
	meta := MetaFromItem(item)
	if len(meta.Description) != 800 {
		t.Errorf("description clamp = %d, want 800", len(meta.Description))
	}
	if len(meta.SemanticText) != 900 {
		t.Errorf("semantic text clamp = %d, want 900 (under limit)", len(meta.SemanticText))
	}
}

func TestMetaFromItem_ClampCountsCharacters(t *testing.T) {
	item := domain.CatalogItem{
		ID: "a", Type: domain.TypeAttraction, Name: "A",
		Description:  strings.Repeat("ế", 900),
		SemanticText: strings.Repeat("ế", 500),
	}
	meta := MetaFromItem(item)
	if !utf8.ValidString(meta.Description) {
		t.Fatal("clamped description contains invalid UTF-8")
	}
	if got := utf8.RuneCountInString(meta.Description); got != 800 {
		t.Errorf("description clamp = %d chars, want 800", got)
	}
	if utf8.RuneCountInString(meta.SemanticText) != 500 {
		t.Error("semantic text under the cap must not be truncated")
	}
}
