// Package vectorstore is the approximate k-NN half of hybrid retrieval
// and the embedding-backed fetch path for the theme graph
// builder. It is backed by Qdrant via the gRPC
// client usage in the retrieved goagent Qdrant integration
// (staging/src/github.com/kart-io/goagent/retrieval/vector_store_qdrant.go):
// one collection holds both thought and conversation documents,
// discriminated by a `docType` payload field, since Qdrant's single-vector
// collections don't need a namespace split to support the filtered k-NN
// queries this system issues.
package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// DocType discriminates the two document shapes sharing a collection.
type DocType string

const (
	DocTypeThought      DocType = "thought"
	DocTypeConversation DocType = "conversation"
)

// Document is one upserted vector-index entry. Fields beyond ID/Embedding
// are carried as an opaque payload map so the thought and conversation
// indexers can each populate the document shape for their
// doc type without this package knowing about internal/model.
type Document struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// SearchHit is one k-NN result.
type SearchHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Filter narrows a k-NN search to a user's own documents, optionally by
// doc type, tag membership (AND across the set), and a minimum creation
// epoch.
type Filter struct {
	User                 string
	DocType              DocType // empty = no constraint
	Tags                 []string
	CreatedAtFromEpochMs int64 // 0 = no lower bound
}

// Index is the vector-search surface the retrieval engine, indexer, and
// graph builder depend on.
type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, embedding []float32, limit int, filter Filter) ([]SearchHit, error)
	// FetchAll returns up to limit documents (with their embeddings)
	// matching filter, for callers that need the raw vectors rather than
	// a similarity-ranked search — the theme graph builder's fetch step
	// for theme-graph builds.
	FetchAll(ctx context.Context, filter Filter, limit int) ([]Document, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

// Config configures the Qdrant-backed Index.
type Config struct {
	URL            string
	APIKey         string
	CollectionName string
	VectorSize     int
}

// QdrantIndex implements Index against a Qdrant collection.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

var _ Index = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant and ensures the collection exists with
// cosine distance over VectorSize-dimensional vectors.
func NewQdrantIndex(ctx context.Context, cfg Config) (*QdrantIndex, error) {
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("vectorstore: collection name required")
	}
	if cfg.VectorSize <= 0 {
		cfg.VectorSize = 1024
	}

	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		host, portStr = cfg.URL, "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6334
	}

	clientCfg := &qdrant.Config{Host: host, Port: port}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: new client: %w", err)
	}

	idx := &QdrantIndex{client: client, collection: cfg.CollectionName}
	if err := idx.ensureCollection(ctx, cfg.VectorSize); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *QdrantIndex) ensureCollection(ctx context.Context, size int) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("vectorstore: collection exists check: %w", err)
	}
	if exists {
		return nil
	}
	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create collection: %w", err)
	}
	return nil
}

// Upsert writes points in batches of 100, matching the batching in the
// payload map Qdrant hands back.
func (idx *QdrantIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := make(map[string]*qdrant.Value, len(d.Payload))
		for k, v := range d.Payload {
			payload[k] = toQdrantValue(v)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(d.Embedding...),
			Payload: payload,
		}
	}

	const batchSize = 100
	for i := 0; i < len(points); i += batchSize {
		end := i + batchSize
		if end > len(points) {
			end = len(points)
		}
		_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: idx.collection,
			Points:         points[i:end],
		})
		if err != nil {
			return fmt.Errorf("vectorstore: upsert batch [%d:%d]: %w", i, end, err)
		}
	}
	return nil
}

func (idx *QdrantIndex) Search(ctx context.Context, embedding []float32, limit int, filter Filter) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	qf := buildFilter(filter)
	limitU := uint64(limit)
	results, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         qf,
		Limit:          &limitU,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, p := range results {
		payload := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = fromQdrantValue(v)
		}
		id := ""
		if p.Id != nil {
			id = p.Id.GetUuid()
			if id == "" {
				id = strconv.FormatUint(p.Id.GetNum(), 10)
			}
		}
		hits = append(hits, SearchHit{ID: id, Score: float64(p.Score), Payload: payload})
	}
	return hits, nil
}

// FetchAll scrolls the collection rather than ranking by similarity,
// paging internally in batches of 250 until limit documents are collected
// or the collection is exhausted.
func (idx *QdrantIndex) FetchAll(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 1000
	}
	qf := buildFilter(filter)

	const page = 250
	var out []Document
	var offset *qdrant.PointId
	for len(out) < limit {
		want := page
		if remaining := limit - len(out); remaining < want {
			want = remaining
		}
		wantU := uint32(want)
		resp, err := idx.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: idx.collection,
			Filter:         qf,
			Limit:          &wantU,
			Offset:         offset,
			WithVectors:    qdrant.NewWithVectorsEnable(true),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: scroll: %w", err)
		}
		if len(resp) == 0 {
			break
		}
		for _, p := range resp {
			payload := make(map[string]any, len(p.Payload))
			for k, v := range p.Payload {
				payload[k] = fromQdrantValue(v)
			}
			id := ""
			if p.Id != nil {
				id = p.Id.GetUuid()
				if id == "" {
					id = strconv.FormatUint(p.Id.GetNum(), 10)
				}
			}
			var embedding []float32
			if v := p.GetVectors(); v != nil {
				if dense := v.GetVector(); dense != nil {
					embedding = dense.GetData()
				}
			}
			out = append(out, Document{ID: id, Embedding: embedding, Payload: payload})
		}
		if len(resp) < want {
			break
		}
		offset = resp[len(resp)-1].Id
	}
	return out, nil
}

func (idx *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete: %w", err)
	}
	return nil
}

func (idx *QdrantIndex) Close() error {
	return idx.client.Close()
}

func buildFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.User != "" {
		must = append(must, qdrant.NewMatch("user", f.User))
	}
	if f.DocType != "" {
		must = append(must, qdrant.NewMatch("docType", string(f.DocType)))
	}
	for _, tag := range f.Tags {
		must = append(must, qdrant.NewMatch("tags", tag))
	}
	if f.CreatedAtFromEpochMs > 0 {
		from := float64(f.CreatedAtFromEpochMs)
		must = append(must, qdrant.NewRange("created_at_epoch", &qdrant.Range{Gte: &from}))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func toQdrantValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return qdrant.NewValueString(val)
	case int:
		return qdrant.NewValueInt(int64(val))
	case int64:
		return qdrant.NewValueInt(val)
	case float64:
		return qdrant.NewValueDouble(val)
	case float32:
		return qdrant.NewValueDouble(float64(val))
	case bool:
		return qdrant.NewValueBool(val)
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = qdrant.NewValueString(s)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: values})
	default:
		return qdrant.NewValueString(fmt.Sprintf("%v", v))
	}
}

func fromQdrantValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch {
	case v.GetStringValue() != "":
		return v.GetStringValue()
	case v.GetIntegerValue() != 0:
		return v.GetIntegerValue()
	case v.GetDoubleValue() != 0:
		return v.GetDoubleValue()
	case v.GetBoolValue():
		return true
	case v.GetListValue() != nil:
		list := v.GetListValue().GetValues()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = fromQdrantValue(item)
		}
		return out
	default:
		return nil
	}
}
