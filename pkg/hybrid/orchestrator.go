package hybrid

import (
	"context"
	"fmt"

	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/logger"
	"github.com/opslens/opslens/pkg/vector"
)

// graphOverFetchFactor controls how many graph fact candidates are fetched
// per requested fact. Fetching a multiple gives the reranker a real pool
// to discriminate over; fetching exactly the target count would make
// reranking a no-op.
const graphOverFetchFactor = 3

const (
	defaultVectorTopK    = 10
	defaultMaxGraphFacts = 10
)

// VectorSearcher is the slice of the vector store client the orchestrator
// needs.
type VectorSearcher interface {
	Search(ctx context.Context, params vector.SearchParams) ([]common.Chunk, error)
}

// FactFetcher is the slice of the graph store client the orchestrator
// needs.
type FactFetcher interface {
	FetchFactsByEpisodes(ctx context.Context, episodeIDs []string, limit int) ([]common.GraphFact, error)
}

// Orchestrator coordinates one hybrid query end to end: vector search,
// episode link extraction, conditional graph fetch, semantic reranking and
// answer synthesis. Store clients are injected once at construction and
// reused across overlapping queries.
type Orchestrator struct {
	vectorClient VectorSearcher
	graphClient  FactFetcher
	reranker     *Reranker
	synthesizer  *Synthesizer
}

// NewOrchestratorParams defines the configuration for creating an
// Orchestrator.
type NewOrchestratorParams struct {
	VectorClient VectorSearcher
	GraphClient  FactFetcher
	Reranker     *Reranker
	Synthesizer  *Synthesizer
}

// NewOrchestrator creates an Orchestrator with the provided clients.
func NewOrchestrator(params NewOrchestratorParams) *Orchestrator {
	return &Orchestrator{
		vectorClient: params.VectorClient,
		graphClient:  params.GraphClient,
		reranker:     params.Reranker,
		synthesizer:  params.Synthesizer,
	}
}

// Request describes one hybrid query.
//
// TenantID scopes every store read; it comes from the caller's
// authenticated identity, never from document content. IncludeGraph false
// disables graph lookup regardless of what the vector hits link to.
type Request struct {
	Query         string
	TenantID      string
	VectorTopK    int
	MaxGraphFacts int
	IncludeGraph  bool
	Source        string
}

// Query runs the full pipeline and always returns a well-formed result
// when it returns at all: empty stages degrade to explicit empty context,
// and only store connectivity failures produce an error.
func (o *Orchestrator) Query(ctx context.Context, req Request) (*common.QueryResult, error) {
	if req.VectorTopK < 1 {
		req.VectorTopK = defaultVectorTopK
	}
	if req.MaxGraphFacts < 1 {
		req.MaxGraphFacts = defaultMaxGraphFacts
	}

	chunks, err := o.vectorClient.Search(ctx, vector.SearchParams{
		Query:    req.Query,
		TenantID: req.TenantID,
		TopK:     req.VectorTopK,
		Source:   req.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid query: %w", err)
	}

	// Tenant isolation lives in the search filter; a chunk from another
	// tenant here means the store or its index is broken, so fail loudly
	// instead of answering from leaked context.
	for _, chunk := range chunks {
		if chunk.Payload.TenantID != req.TenantID {
			return nil, fmt.Errorf(
				"hybrid query: vector store returned chunk %s for tenant %q, want %q",
				chunk.ID, chunk.Payload.TenantID, req.TenantID,
			)
		}
	}

	episodeIDs := ExtractEpisodeIDs(chunks)

	metadata := common.QueryMetadata{
		NumVectorHits: len(chunks),
		NumEpisodes:   len(episodeIDs),
	}

	var facts []common.GraphFact
	switch {
	case !req.IncludeGraph:
		logger.Debug("Graph lookup disabled by caller", "tenant", req.TenantID)
	case len(episodeIDs) == 0:
		logger.Debug("No episode ids in vector hits, skipping graph lookup", "tenant", req.TenantID)
	default:
		metadata.GraphQueried = true

		candidates, err := o.graphClient.FetchFactsByEpisodes(
			ctx,
			episodeIDs,
			req.MaxGraphFacts*graphOverFetchFactor,
		)
		if err != nil {
			return nil, fmt.Errorf("hybrid query: %w", err)
		}
		metadata.NumGraphCandidates = len(candidates)

		if len(candidates) > 0 {
			facts, metadata.Reranked = o.reranker.Rerank(ctx, req.Query, candidates, req.MaxGraphFacts)
		}
	}
	metadata.NumGraphFacts = len(facts)

	answer := o.synthesizer.Synthesize(ctx, req.Query, chunks, facts)

	logger.Debug(
		"Hybrid query complete",
		"tenant", req.TenantID,
		"vector_hits", metadata.NumVectorHits,
		"episodes", metadata.NumEpisodes,
		"graph_queried", metadata.GraphQueried,
		"graph_facts", metadata.NumGraphFacts,
	)

	return &common.QueryResult{
		Answer:     answer,
		Chunks:     chunks,
		GraphFacts: facts,
		EpisodeIDs: episodeIDs,
		Metadata:   metadata,
	}, nil
}
