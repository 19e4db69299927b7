package hybrid

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Embedder is the slice of the AI client the reranker needs.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Reranker orders graph fact candidates by semantic similarity to the
// active query. Reranking is a best-effort enhancement: every failure path
// degrades to the first candidates in their original order, never to an
// error.
type Reranker struct {
	embedder Embedder
	parallel int
}

// NewRerankerParams defines the configuration for creating a Reranker.
// Parallel bounds concurrent embedding requests; size it to the embedding
// provider's rate limit.
type NewRerankerParams struct {
	Embedder Embedder
	Parallel int
}

// NewReranker creates a Reranker with the provided configuration.
func NewReranker(params NewRerankerParams) *Reranker {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Reranker{
		embedder: params.Embedder,
		parallel: parallel,
	}
}

// Rerank returns the topK facts most similar to the query, ordered by
// descending similarity. Ties keep their original candidate order.
//
// When the candidate list already fits in topK the input is returned
// verbatim. When any embedding call fails, the first topK candidates are
// returned in their original order instead. The second return value
// reports whether similarity ordering was actually applied.
func (r *Reranker) Rerank(
	ctx context.Context,
	query string,
	facts []common.GraphFact,
	topK int,
) ([]common.GraphFact, bool) {
	if topK < 0 {
		topK = 0
	}
	if len(facts) <= topK {
		return facts, false
	}

	queryVec, err := r.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		logger.Warn("Reranking skipped, failed to embed query", "err", err)
		return firstN(facts, topK), false
	}

	scores := make([]float64, len(facts))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(r.parallel)
	for i := range facts {
		eg.Go(func() error {
			vec, err := r.embedder.GenerateEmbedding(ectx, []byte(compositeText(facts[i])))
			if err != nil {
				return err
			}
			scores[i] = CosineSimilarity(queryVec, vec)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Warn("Reranking skipped, failed to embed facts", "err", err)
		return firstN(facts, topK), false
	}

	scored := make([]common.ScoredFact, len(facts))
	for i, fact := range facts {
		scored[i] = common.ScoredFact{Fact: fact, Score: scores[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := make([]common.GraphFact, topK)
	for i := 0; i < topK; i++ {
		out[i] = scored[i].Fact
	}
	return out, true
}

// compositeText builds the representation a fact is embedded as: entity
// names and relation type enrich the bare fact text and materially change
// the ranking against the query.
func compositeText(fact common.GraphFact) string {
	return strings.Join([]string{
		fact.SourceName,
		fact.Relation,
		fact.TargetName,
		fact.Fact,
	}, " ")
}

func firstN(facts []common.GraphFact, n int) []common.GraphFact {
	if n > len(facts) {
		n = len(facts)
	}
	out := make([]common.GraphFact, n)
	copy(out, facts[:n])
	return out
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|). Mismatched lengths and
// zero-norm vectors yield 0 rather than an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
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
