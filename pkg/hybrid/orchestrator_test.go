package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/vector"
)

// fakeVectorClient returns canned chunks and records the search parameters
// it receives.
type fakeVectorClient struct {
	chunks []common.Chunk
	err    error

	calls []vector.SearchParams
}

func (f *fakeVectorClient) Search(_ context.Context, params vector.SearchParams) ([]common.Chunk, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

// fakeGraphClient returns canned facts and records every fetch.
type fakeGraphClient struct {
	facts []common.GraphFact
	err   error

	calls  int
	ids    []string
	limits []int
}

func (f *fakeGraphClient) FetchFactsByEpisodes(
	_ context.Context,
	episodeIDs []string,
	limit int,
) ([]common.GraphFact, error) {
	f.calls++
	f.ids = episodeIDs
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func linkedChunk(id string, tenantID string, episodeID string) common.Chunk {
	return common.Chunk{
		ID:    id,
		Score: 0.9,
		Text:  "chunk body",
		Payload: common.ChunkPayload{
			TenantID:     tenantID,
			Source:       "gmail",
			DocumentName: id + ".txt",
			EpisodeID:    episodeID,
		},
	}
}

func testOrchestrator(vec *fakeVectorClient, graph *fakeGraphClient) *Orchestrator {
	return NewOrchestrator(NewOrchestratorParams{
		VectorClient: vec,
		GraphClient:  graph,
		Reranker:     NewReranker(NewRerankerParams{Embedder: &fakeEmbedder{fallback: []float32{1, 0}}}),
		Synthesizer:  NewSynthesizer(NewSynthesizerParams{AIClient: &fakeCompleter{answer: "the answer"}}),
	})
}

func TestQueryFullPipeline(t *testing.T) {
	vec := &fakeVectorClient{chunks: []common.Chunk{
		linkedChunk("c1", "acme", "ep-1"),
		linkedChunk("c2", "acme", "ep-1"),
		linkedChunk("c3", "acme", "ep-1"),
		linkedChunk("c4", "acme", ""),
		linkedChunk("c5", "acme", ""),
	}}
	graph := &fakeGraphClient{}
	for i := 0; i < 12; i++ {
		graph.facts = append(graph.facts, factNamed(fmt.Sprintf("fact-%d", i)))
	}
	o := testOrchestrator(vec, graph)

	result, err := o.Query(context.Background(), Request{
		Query:        "what broke?",
		TenantID:     "acme",
		IncludeGraph: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := vec.calls[0].TopK; got != defaultVectorTopK {
		t.Fatalf("expected default top k %d, got %d", defaultVectorTopK, got)
	}
	if graph.calls != 1 {
		t.Fatalf("expected exactly one graph fetch, got %d", graph.calls)
	}
	if want := []string{"ep-1"}; len(graph.ids) != 1 || graph.ids[0] != want[0] {
		t.Fatalf("expected graph fetch for %v, got %v", want, graph.ids)
	}
	if got := graph.limits[0]; got != defaultMaxGraphFacts*graphOverFetchFactor {
		t.Fatalf("expected over-fetch limit %d, got %d", defaultMaxGraphFacts*graphOverFetchFactor, got)
	}

	if result.Answer != "the answer" {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if len(result.GraphFacts) != defaultMaxGraphFacts {
		t.Fatalf("expected %d facts after reranking, got %d", defaultMaxGraphFacts, len(result.GraphFacts))
	}

	md := result.Metadata
	if md.NumVectorHits != 5 || md.NumEpisodes != 1 {
		t.Fatalf("unexpected metadata counts: %+v", md)
	}
	if md.NumGraphCandidates != 12 || md.NumGraphFacts != defaultMaxGraphFacts {
		t.Fatalf("unexpected graph metadata: %+v", md)
	}
	if !md.GraphQueried || !md.Reranked {
		t.Fatalf("expected graph queried and reranked, got %+v", md)
	}
}

func TestQueryShortCircuitsGraphOnZeroVectorHits(t *testing.T) {
	vec := &fakeVectorClient{}
	graph := &fakeGraphClient{facts: []common.GraphFact{factNamed("stale")}}
	o := testOrchestrator(vec, graph)

	result, err := o.Query(context.Background(), Request{
		Query:        "anything",
		TenantID:     "acme",
		IncludeGraph: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.calls != 0 {
		t.Fatalf("graph store must not be queried without vector hits, got %d calls", graph.calls)
	}
	if result.Metadata.GraphQueried || result.Metadata.Reranked {
		t.Fatalf("expected graph skipped, got %+v", result.Metadata)
	}
	if len(result.Chunks) != 0 || len(result.GraphFacts) != 0 {
		t.Fatal("expected empty context in result")
	}
	if result.Answer == "" {
		t.Fatal("expected synthesized answer even with empty context")
	}
}

func TestQuerySkipsGraphWhenDisabled(t *testing.T) {
	vec := &fakeVectorClient{chunks: []common.Chunk{linkedChunk("c1", "acme", "ep-1")}}
	graph := &fakeGraphClient{facts: []common.GraphFact{factNamed("linked")}}
	o := testOrchestrator(vec, graph)

	result, err := o.Query(context.Background(), Request{
		Query:        "anything",
		TenantID:     "acme",
		IncludeGraph: false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.calls != 0 {
		t.Fatalf("graph store must not be queried when disabled, got %d calls", graph.calls)
	}
	if result.Metadata.GraphQueried {
		t.Fatalf("expected GraphQueried false, got %+v", result.Metadata)
	}
	if len(result.EpisodeIDs) != 1 {
		t.Fatalf("episode ids are still extracted, got %v", result.EpisodeIDs)
	}
}

func TestQueryAppliesOverFetchToCustomLimit(t *testing.T) {
	vec := &fakeVectorClient{chunks: []common.Chunk{linkedChunk("c1", "acme", "ep-1")}}
	graph := &fakeGraphClient{}
	o := testOrchestrator(vec, graph)

	_, err := o.Query(context.Background(), Request{
		Query:         "anything",
		TenantID:      "acme",
		MaxGraphFacts: 7,
		IncludeGraph:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := graph.limits[0]; got != 21 {
		t.Fatalf("expected over-fetch limit 21, got %d", got)
	}
}

func TestQueryRejectsCrossTenantChunks(t *testing.T) {
	vec := &fakeVectorClient{chunks: []common.Chunk{
		linkedChunk("c1", "acme", "ep-1"),
		linkedChunk("c2", "globex", "ep-2"),
	}}
	graph := &fakeGraphClient{}
	o := testOrchestrator(vec, graph)

	_, err := o.Query(context.Background(), Request{
		Query:        "anything",
		TenantID:     "acme",
		IncludeGraph: true,
	})
	if err == nil {
		t.Fatal("expected error for cross-tenant chunk")
	}
	if !strings.Contains(err.Error(), "globex") {
		t.Fatalf("error must name the offending tenant, got %v", err)
	}
	if graph.calls != 0 {
		t.Fatal("pipeline must stop before the graph stage on a tenant violation")
	}
}

func TestQueryPropagatesStoreErrors(t *testing.T) {
	t.Run("vector store", func(t *testing.T) {
		vec := &fakeVectorClient{err: errors.New("connection refused")}
		o := testOrchestrator(vec, &fakeGraphClient{})

		_, err := o.Query(context.Background(), Request{Query: "q", TenantID: "acme"})
		if err == nil || !strings.Contains(err.Error(), "connection refused") {
			t.Fatalf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("graph store", func(t *testing.T) {
		vec := &fakeVectorClient{chunks: []common.Chunk{linkedChunk("c1", "acme", "ep-1")}}
		graph := &fakeGraphClient{err: errors.New("neo4j unavailable")}
		o := testOrchestrator(vec, graph)

		_, err := o.Query(context.Background(), Request{
			Query:        "q",
			TenantID:     "acme",
			IncludeGraph: true,
		})
		if err == nil || !strings.Contains(err.Error(), "neo4j unavailable") {
			t.Fatalf("expected wrapped store error, got %v", err)
		}
	})
}
