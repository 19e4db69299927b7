package common

// Chunk represents a single document chunk stored in the vector index.
// Chunks are created during ingestion and are read-only to the retrieval
// pipeline. Score is the similarity against the active query and is only
// meaningful on chunks returned from a search.
type Chunk struct {
	ID      string       `json:"id"`
	Score   float64      `json:"score"`
	Text    string       `json:"text"`
	Payload ChunkPayload `json:"payload"`
}

// ChunkPayload is the typed view of a chunk's metadata. Every consumer
// reads payload fields through this structure rather than poking at raw
// maps, so optional fields have exactly one default in one place.
//
// EpisodeID links the chunk back to its episode node in the knowledge
// graph. Chunks without an episode id are valid; they simply contribute
// no graph context.
type ChunkPayload struct {
	TenantID     string `json:"tenant_id"`
	Source       string `json:"source"`
	DocumentName string `json:"document_name"`
	DocumentType string `json:"document_type"`
	ChunkIndex   int    `json:"chunk_index"`
	TotalChunks  int    `json:"total_chunks"`
	EpisodeID    string `json:"episode_id"`
}

// NormalizePayload converts a raw metadata map into a ChunkPayload.
// Missing or mistyped fields fall back to zero values; numeric fields
// accept both float64 (JSON decoding) and int.
func NormalizePayload(raw map[string]any) ChunkPayload {
	return ChunkPayload{
		TenantID:     stringField(raw, "tenant_id"),
		Source:       stringField(raw, "source"),
		DocumentName: stringField(raw, "document_name"),
		DocumentType: stringField(raw, "document_type"),
		ChunkIndex:   intField(raw, "chunk_index"),
		TotalChunks:  intField(raw, "total_chunks"),
		EpisodeID:    stringField(raw, "episode_id"),
	}
}

func stringField(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw map[string]any, key string) int {
	if raw == nil {
		return 0
	}
	switch v := raw[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// GraphFact is a single relationship fact retrieved from the knowledge
// graph. Facts are derived from episode-scoped traversal and are read-only
// here; their lifecycle belongs to the graph construction subsystem.
type GraphFact struct {
	SourceName    string `json:"source_name"`
	SourceSummary string `json:"source_summary"`
	Relation      string `json:"relation"`
	TargetName    string `json:"target_name"`
	Fact          string `json:"fact"`
	ValidFrom     string `json:"valid_from,omitempty"`
	ValidTo       string `json:"valid_to,omitempty"`
	SourceNodeID  string `json:"source_node_id"`
	TargetNodeID  string `json:"target_node_id"`
	EpisodeID     string `json:"episode_id"`
}

// ScoredFact pairs a GraphFact with its similarity against the active
// query. It exists only within one query's execution.
type ScoredFact struct {
	Fact  GraphFact
	Score float64
}

// QueryMetadata carries per-stage diagnostic counts for one hybrid query.
type QueryMetadata struct {
	NumVectorHits      int  `json:"num_vector_hits"`
	NumGraphCandidates int  `json:"num_graph_candidates"`
	NumGraphFacts      int  `json:"num_graph_facts"`
	NumEpisodes        int  `json:"num_episodes"`
	GraphQueried       bool `json:"graph_queried"`
	Reranked           bool `json:"reranked"`
}

// QueryResult is the hybrid query pipeline's output: the synthesized
// answer plus the context that produced it.
type QueryResult struct {
	Answer     string        `json:"answer"`
	Chunks     []Chunk       `json:"chunks"`
	GraphFacts []GraphFact   `json:"graph_facts"`
	EpisodeIDs []string      `json:"episode_ids"`
	Metadata   QueryMetadata `json:"metadata"`
}
