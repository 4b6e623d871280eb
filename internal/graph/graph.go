// Package graph builds the per-user theme graph: k-means
// clustering over thought embeddings, LLM cluster labeling, circular +
// spiral layout, similarity-thresholded edges, and a JSON cache in front
// of the whole pipeline. Clustering is grounded directly on
// internal/rag/biz/cluster.go's KMeansClusterer (k-means++ init, cosine
// distance, early-stop on zero reassignments); labeling fan-out reuses
// internal/pkg/fanout, and caching reuses internal/cache.JSONCache.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/cache"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/fanout"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

const (
	cacheValidity        = time.Hour
	maxFetch             = 1000
	maxClusterIterations = 50
	labelSampleSize      = 10
	labelTruncateChars   = 200
	labelFanOut          = 6
	layoutRadius         = 150
	spiralBaseRadius     = 80
	defaultMinSimilarity = 0.7
	maxDegree            = 5
	recencyHorizon       = 365 * 24 * time.Hour
)

var palette = []string{
	"#5B8FF9", "#61DDAA", "#F6BD16", "#F08F56",
	"#9270CA", "#6DC8EC", "#FF9D4D", "#269A99",
}

// Request is one graph-build call.
type Request struct {
	User          string
	Month         string  // "" or "all" means no window; otherwise "YYYY-MM"
	MinSimilarity float64 // 0 means use the default of 0.7
}

// Builder assembles DerivedGraphs, caching the result.
type Builder struct {
	Vectors vectorstore.Index
	Store   store.Factory
	Chat    llm.ChatProvider
	Cache   cache.JSONCache
}

// NewBuilder wires a Builder.
func NewBuilder(vectors vectorstore.Index, metaStore store.Factory, chat llm.ChatProvider, c cache.JSONCache) *Builder {
	return &Builder{Vectors: vectors, Store: metaStore, Chat: chat, Cache: c}
}

// Build returns the cached graph if valid, otherwise runs the full
// pipeline and caches the result.
func (b *Builder) Build(ctx context.Context, req Request) (*model.DerivedGraph, error) {
	minSim := req.MinSimilarity
	if minSim <= 0 {
		minSim = defaultMinSimilarity
	}

	g := &model.DerivedGraph{User: req.User, Month: req.Month}
	key := g.CacheKey()

	var cached model.DerivedGraph
	if b.Cache != nil {
		if hit, err := b.Cache.Get(ctx, key, &cached); err == nil && hit {
			meta, err := b.Store.UserMeta().Get(ctx, req.User)
			if err == nil && cached.CacheTimestamp.After(time.UnixMilli(meta.LastDataChange)) && time.Since(cached.CacheTimestamp) < cacheValidity {
				return &cached, nil
			}
		}
	}

	items, degraded, degradedReason := b.fetch(ctx, req)
	result := b.buildFromItems(ctx, req.User, req.Month, items, minSim)
	if degraded {
		result.Metadata.Degraded = true
		result.Metadata.DegradedReason = degradedReason
	}

	if b.Cache != nil {
		if err := b.Cache.Set(ctx, key, result, 24*time.Hour); err != nil {
			logger.Warnw("graph: cache set failed", "key", key, "error", err.Error())
		}
	}
	return result, nil
}

type embeddedItem struct {
	id               string
	text             string
	summary          string
	tags             model.StringSet
	kind             model.Kind
	decisionScore    float64
	createdAtEpochMs int64
	embedding        []float32
}

// fetch implements step 1: pull up to maxFetch thoughts with embeddings
// from the vector store, falling back to the metadata store (with
// synthesized random embeddings) if the vector store is unreachable.
func (b *Builder) fetch(ctx context.Context, req Request) ([]embeddedItem, bool, string) {
	filter := vectorstore.Filter{User: req.User, DocType: vectorstore.DocTypeThought}
	if req.Month != "" && req.Month != "all" {
		if from, err := time.Parse("2006-01", req.Month); err == nil {
			filter.CreatedAtFromEpochMs = from.UnixMilli()
		}
	}

	docs, err := b.Vectors.FetchAll(ctx, filter, maxFetch)
	if err == nil {
		items := make([]embeddedItem, 0, len(docs))
		for _, d := range docs {
			items = append(items, fromDocument(d))
		}
		return items, false, ""
	}

	logger.Warnw("graph: vector store unreachable, falling back to metadata store", "user", req.User, "error", err.Error())

	rows, _, _, listErr := b.Store.Thoughts().List(ctx, req.User, store.ThoughtListFilter{Limit: maxFetch})
	if listErr != nil {
		return nil, true, "vector store and metadata store both unreachable"
	}

	items := make([]embeddedItem, 0, len(rows))
	for _, t := range rows {
		items = append(items, embeddedItem{
			id: t.ID, text: t.Text, summary: t.Summary, tags: t.Tags, kind: t.Kind,
			decisionScore: t.DecisionScore, createdAtEpochMs: t.CreatedAtEpochMs,
			embedding: randomUnitVector(1024, t.ID),
		})
	}
	return items, true, "vector store unreachable; topology is approximate"
}

func fromDocument(d vectorstore.Document) embeddedItem {
	item := embeddedItem{id: d.ID, embedding: d.Embedding}
	if v, ok := d.Payload["text"].(string); ok {
		item.text = v
	}
	if v, ok := d.Payload["summary"].(string); ok {
		item.summary = v
	}
	if v, ok := d.Payload["kind"].(string); ok {
		item.kind = model.Kind(v)
	}
	if v, ok := asFloat64(d.Payload["decisionScore"]); ok {
		item.decisionScore = v
	}
	if v, ok := asInt64(d.Payload["created_at_epoch"]); ok {
		item.createdAtEpochMs = v
	}
	if v, ok := d.Payload["tags"].([]string); ok {
		item.tags = model.StringSet(v)
	} else if v, ok := d.Payload["tags"].([]any); ok {
		tags := make(model.StringSet, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		item.tags = tags
	}
	return item
}

// randomUnitVector deterministically seeds off the thought id so repeated
// degraded builds in the same process are at least stable within a run.
func randomUnitVector(dim int, seedStr string) []float32 {
	var seed int64
	for _, c := range seedStr {
		seed = seed*31 + int64(c)
	}
	r := rand.New(rand.NewSource(seed))
	v := make([]float32, dim)
	var norm float64
	for i := range v {
		v[i] = float32(r.NormFloat64())
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (b *Builder) buildFromItems(ctx context.Context, user, month string, items []embeddedItem, minSimilarity float64) *model.DerivedGraph {
	now := time.Now()
	n := len(items)

	if n == 0 {
		return &model.DerivedGraph{
			User: user, Month: month,
			Themes: []model.Theme{}, Nodes: []model.GraphNode{}, Edges: []model.GraphEdge{},
			Metadata:       model.GraphMetadata{ThoughtCount: 0, ThemeCount: 0, GeneratedAt: now, Algorithm: "kmeans-cosine"},
			CacheTimestamp: now,
		}
	}

	k := clusterCount(n)
	clusters := cluster(items, k)

	themes := make([]model.Theme, len(clusters))
	nodes := make([]model.GraphNode, 0, n)

	labels := fanout.MapBounded(ctx, pool.DefaultPool, labelFanOut, clusters, func(ctx context.Context, c []embeddedItem) themeLabel {
		return b.label(ctx, c)
	})

	for ci, members := range clusters {
		themeID := fmt.Sprintf("theme-%d", ci)
		lbl := labels[ci]
		sample := make(model.StringSet, 0, labelSampleSize)
		for i, m := range members {
			if i >= labelSampleSize {
				break
			}
			sample = append(sample, m.id)
		}
		themes[ci] = model.Theme{
			ID: themeID, Label: lbl.label, Description: lbl.description,
			Color: palette[ci%len(palette)], Count: len(members), SampleThoughts: sample,
		}

		cx := layoutRadius * math.Cos(2*math.Pi*float64(ci)/float64(len(clusters)))
		cy := layoutRadius * math.Sin(2*math.Pi*float64(ci)/float64(len(clusters)))
		cn := len(members)
		for i, m := range members {
			theta := 4 * math.Pi * float64(i) / float64(maxInt(cn, 1))
			r := spiralBaseRadius * (0.3 + 0.7*float64(i)/float64(maxInt(cn, 1)))
			x := cx + r*math.Cos(theta)
			y := cy + r*math.Sin(theta)

			nodes = append(nodes, model.GraphNode{
				ID: m.id, LabelPreview: truncateRunes(firstNonEmpty(m.summary, m.text), 60),
				ThemeID: themeID, X: x, Y: y, Tags: m.tags,
				Recency: recency(m.createdAtEpochMs, now), Importance: m.decisionScore, Kind: m.kind,
			})
		}
	}

	edges := buildEdges(items, minSimilarity)

	return &model.DerivedGraph{
		User: user, Month: month,
		Themes: themes, Nodes: nodes, Edges: edges,
		Metadata:       model.GraphMetadata{ThoughtCount: n, ThemeCount: len(themes), GeneratedAt: now, Algorithm: "kmeans-cosine"},
		CacheTimestamp: now,
	}
}

// clusterCount implements step 2: k = min(6, max(3, floor(sqrt(n/5)))).
func clusterCount(n int) int {
	k := int(math.Floor(math.Sqrt(float64(n) / 5.0)))
	if k < 3 {
		k = 3
	}
	if k > 6 {
		k = 6
	}
	if k > n {
		k = n
	}
	return k
}

// cluster implements step 3: k-means with k-means++ init and cosine
// distance.
func cluster(items []embeddedItem, k int) [][]embeddedItem {
	n := len(items)
	if n == 0 {
		return nil
	}
	if n <= k || n <= 5 {
		out := make([][]embeddedItem, 0, n)
		for _, it := range items {
			out = append(out, []embeddedItem{it})
		}
		return out
	}

	centers := initCentersPlusPlus(items, k)
	var assignments []int
	for iter := 0; iter < maxClusterIterations; iter++ {
		newAssignments := assign(items, centers)
		if iter > 0 && equalAssignments(assignments, newAssignments) {
			assignments = newAssignments
			break
		}
		assignments = newAssignments
		centers = updateCenters(items, assignments, k)
	}

	clusters := make([][]embeddedItem, k)
	for i, a := range assignments {
		clusters[a] = append(clusters[a], items[i])
	}
	out := make([][]embeddedItem, 0, k)
	for _, c := range clusters {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func initCentersPlusPlus(items []embeddedItem, k int) [][]float32 {
	centers := make([][]float32, k)
	centers[0] = items[rand.Intn(len(items))].embedding

	for i := 1; i < k; i++ {
		distances := make([]float64, len(items))
		var total float64
		for j, it := range items {
			minDist := 2.0
			for _, c := range centers[:i] {
				d := 1.0 - cosineSim(it.embedding, c)
				if d < minDist {
					minDist = d
				}
			}
			distances[j] = minDist * minDist
			total += distances[j]
		}
		r := rand.Float64() * total
		var cumulative float64
		for j, d := range distances {
			cumulative += d
			if cumulative >= r {
				centers[i] = items[j].embedding
				break
			}
		}
		if centers[i] == nil {
			centers[i] = items[len(items)-1].embedding
		}
	}
	return centers
}

func assign(items []embeddedItem, centers [][]float32) []int {
	assignments := make([]int, len(items))
	for i, it := range items {
		best := 0
		bestSim := -1.0
		for j, c := range centers {
			sim := cosineSim(it.embedding, c)
			if sim > bestSim {
				bestSim = sim
				best = j
			}
		}
		assignments[i] = best
	}
	return assignments
}

func updateCenters(items []embeddedItem, assignments []int, k int) [][]float32 {
	if len(items) == 0 {
		return make([][]float32, k)
	}
	dim := len(items[0].embedding)
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, it := range items {
		a := assignments[i]
		counts[a]++
		for d := 0; d < dim && d < len(it.embedding); d++ {
			sums[a][d] += float64(it.embedding[d])
		}
	}
	centers := make([][]float32, k)
	for i := 0; i < k; i++ {
		centers[i] = make([]float32, dim)
		if counts[i] == 0 {
			continue
		}
		var norm float64
		for d := 0; d < dim; d++ {
			v := sums[i][d] / float64(counts[i])
			centers[i][d] = float32(v)
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for d := 0; d < dim; d++ {
				centers[i][d] = float32(float64(centers[i][d]) / norm)
			}
		}
	}
	return centers
}

func equalAssignments(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type themeLabel struct {
	label       string
	description string
}

// label implements step 4: sample up to 10 members, ask the LLM for
// strictly-JSON {label, description}, fall back to "Miscellaneous" on any
// failure (empty chat provider, call error, or malformed JSON).
func (b *Builder) label(ctx context.Context, members []embeddedItem) themeLabel {
	fallback := themeLabel{label: "Miscellaneous", description: "Various related thoughts"}
	if b.Chat == nil {
		return fallback
	}

	var sb strings.Builder
	for i, m := range members {
		if i >= labelSampleSize {
			break
		}
		body := firstNonEmpty(m.summary, m.text)
		sb.WriteString("- ")
		sb.WriteString(truncateRunes(body, labelTruncateChars))
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf("Here are sample notes from one cluster of a user's personal notes:\n\n%s\nRespond with strict JSON only: {\"label\": \"2-4 words\", \"description\": \"one sentence\"}.", sb.String())
	out, err := b.Chat.Generate(ctx, prompt, "")
	if err != nil {
		logger.Warnw("graph: cluster labeling failed", "error", err.Error())
		return fallback
	}

	var parsed struct {
		Label       string `json:"label"`
		Description string `json:"description"`
	}
	cleaned := strings.TrimSpace(out)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &parsed); err != nil || parsed.Label == "" {
		logger.Warnw("graph: cluster label response not strict JSON, using fallback", "error", err)
		return fallback
	}
	return themeLabel{label: parsed.Label, description: parsed.Description}
}

// buildEdges implements step 6: all-pairs cosine similarity above
// minSimilarity, greedily accepted in descending-similarity order subject
// to a per-node degree cap of 5.
func buildEdges(items []embeddedItem, minSimilarity float64) []model.GraphEdge {
	type candidate struct {
		i, j int
		sim  float64
	}
	var candidates []candidate
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sim := cosineSim(items[i].embedding, items[j].embedding)
			if sim >= minSimilarity {
				candidates = append(candidates, candidate{i, j, sim})
			}
		}
	}
	sort.Slice(candidates, func(a, c int) bool { return candidates[a].sim > candidates[c].sim })

	degree := make([]int, len(items))
	edges := make([]model.GraphEdge, 0, len(candidates))
	for _, c := range candidates {
		if degree[c.i] >= maxDegree || degree[c.j] >= maxDegree {
			continue
		}
		edges = append(edges, model.GraphEdge{Source: items[c.i].id, Target: items[c.j].id, Similarity: c.sim})
		degree[c.i]++
		degree[c.j]++
	}
	return edges
}

func recency(createdAtEpochMs int64, now time.Time) float64 {
	age := now.Sub(time.UnixMilli(createdAtEpochMs))
	score := 1 - float64(age)/float64(recencyHorizon)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
