// Package semantic owns all vector index operations. It isolates the rest of
// the pipeline from Qdrant response shapes: everything leaves this package as
// a RetrievalHit.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// pointNamespace seeds deterministic point UUIDs so re-ingesting an item
// overwrites its previous point instead of duplicating it.
var pointNamespace = uuid.MustParse("8b1a7c6e-4f3d-4a2b-9c0d-5e6f7a8b9c0d")

// PointID derives the stable Qdrant point UUID for a catalog item id.
func PointID(itemID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(itemID)).String()
}

// pointsAPI is the slice of Qdrant's points service the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the slice of Qdrant's collections service the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients creates a VectorStore over explicit clients, for tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Ping verifies the index is reachable.
func (v *VectorStore) Ping(ctx context.Context) error {
	if _, err := v.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection if missing, and verifies the
// configured dimension otherwise. A mismatch is ErrDimensionMismatch unless
// recreate is set, in which case the collection is dropped and recreated.
// Administrative: called only by the batch setup path.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int, recreate bool) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %w", domain.ErrIndexUnavailable, err)
	}

	exists := false
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			exists = true
			break
		}
	}

	if exists {
		current, err := v.describeDimension(ctx)
		if err != nil {
			return err
		}
		if current == uint64(dims) {
			return nil
		}
		if !recreate {
			return fmt.Errorf("%w: collection %s has %d dims, want %d",
				domain.ErrDimensionMismatch, v.collection, current, dims)
		}
		if _, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: v.collection}); err != nil {
			return fmt.Errorf("semantic: drop collection %s: %w", v.collection, err)
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

func (v *VectorStore) describeDimension(ctx context.Context) (uint64, error) {
	info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: v.collection})
	if err != nil {
		return 0, fmt.Errorf("%w: describe collection: %w", domain.ErrIndexUnavailable, err)
	}
	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, fmt.Errorf("semantic: collection %s has no vector params", v.collection)
	}
	return params.GetSize(), nil
}

// Upsert stores vector records. Called by the batch loader.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ItemID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: metaToPayload(r.ItemID, r.Meta),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), mapStoreErr(err))
	}
	return nil
}

// Search performs k-NN similarity search, returning at most topK hits in
// descending score order. filter restricts hits by exact payload match.
func (v *VectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]RetrievalHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector", domain.ErrEmptyInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("semantic: top_k must be positive, got %d", topK)
	}

	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filter) > 0 {
		must := make([]*pb.Condition, 0, len(filter))
		for k, val := range filter {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", mapStoreErr(err))
	}

	hits := make([]RetrievalHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromScored(r)
	}
	return hits, nil
}

// mapStoreErr normalizes transport failures onto the domain taxonomy.
func mapStoreErr(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, domain.Transient(err))
	case codes.NotFound:
		// Missing collection; retrying will not help.
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(err.Error()), "dimension") {
			return fmt.Errorf("%w: %w", domain.ErrDimensionMismatch, err)
		}
	}
	return err
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
