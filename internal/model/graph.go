package model

import "time"

// Theme is a cluster of thoughts produced by k-means over embeddings and
// labeled by the LLM.
type Theme struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Description    string    `json:"description"`
	Color          string    `json:"color"`
	Count          int       `json:"count"`
	SampleThoughts StringSet `json:"sampleThoughts"`
}

// GraphNode is one thought placed in the 2-D theme graph.
type GraphNode struct {
	ID           string    `json:"id"`
	LabelPreview string    `json:"labelPreview"`
	ThemeID      string    `json:"themeId"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Tags         StringSet `json:"tags"`
	Recency      float64   `json:"recency"`
	Importance   float64   `json:"importance"`
	Kind         Kind      `json:"kind"`
}

// GraphEdge connects two nodes whose cosine similarity cleared the
// minSimilarity threshold, subject to the degree-5 cap.
type GraphEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

// GraphMetadata carries generation diagnostics, including degraded-mode
// flags recording any degraded build path (vector-store fallback).
type GraphMetadata struct {
	ThoughtCount   int       `json:"thoughtCount"`
	ThemeCount     int       `json:"themeCount"`
	GeneratedAt    time.Time `json:"generatedAt"`
	Algorithm      string    `json:"algorithm"`
	Degraded       bool      `json:"degraded,omitempty"`
	DegradedReason string    `json:"degradedReason,omitempty"`
}

// DerivedGraph is a per-user, per-time-window cached graph.
type DerivedGraph struct {
	User           string        `json:"-"`
	Month          string        `json:"-"` // "all" or "YYYY-MM"
	Themes         []Theme       `json:"themes"`
	Nodes          []GraphNode   `json:"nodes"`
	Edges          []GraphEdge   `json:"edges"`
	Metadata       GraphMetadata `json:"metadata"`
	CacheTimestamp time.Time     `json:"cacheTimestamp"`
}

// CacheKey returns the blob-store key this graph is cached under, matching
// the layout graph/{user}/{month|'all'}-v2.json.
func (g *DerivedGraph) CacheKey() string {
	month := g.Month
	if month == "" {
		month = "all"
	}
	return "graph/" + g.User + "/" + month + "-v2.json"
}
