package hybrid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/opslens/opslens/pkg/common"
)

// fakeEmbedder returns canned vectors keyed by exact input text. Unknown
// inputs get the fallback vector; inputs matching failOn return an error.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	failOn   string
	err      error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	text := string(input)
	if f.failOn != "" && text == f.failOn {
		return nil, errors.New("embedding provider rejected input")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return f.fallback, nil
}

func factNamed(name string) common.GraphFact {
	return common.GraphFact{
		SourceName: "src",
		Relation:   "RELATES_TO",
		TargetName: "tgt",
		Fact:       name,
		EpisodeID:  "ep-1",
	}
}

func TestRerankNoOpWhenCandidatesFit(t *testing.T) {
	r := NewReranker(NewRerankerParams{Embedder: &fakeEmbedder{err: errors.New("must not be called")}})

	facts := []common.GraphFact{factNamed("a"), factNamed("b"), factNamed("c")}
	got, reranked := r.Rerank(context.Background(), "query", facts, 5)
	if reranked {
		t.Fatal("expected no reranking for a candidate list that already fits")
	}
	if !reflect.DeepEqual(got, facts) {
		t.Fatalf("expected input returned verbatim, got %v", got)
	}

	// Idempotent under re-application.
	again, _ := r.Rerank(context.Background(), "query", got, 5)
	if !reflect.DeepEqual(again, got) {
		t.Fatalf("rerank is not idempotent: %v vs %v", again, got)
	}
}

func TestRerankOrdersByDescendingSimilarity(t *testing.T) {
	facts := make([]common.GraphFact, 4)
	vectors := map[string][]float32{
		"query": {1, 0},
	}
	// Angles from the query vector chosen so similarity is
	// d > b > a > c, regardless of candidate order.
	angles := map[string]float64{"a": 1.2, "b": 0.6, "c": 1.5, "d": 0.1}
	for i, name := range []string{"a", "b", "c", "d"} {
		facts[i] = factNamed(name)
		angle := angles[name]
		vectors[compositeText(facts[i])] = []float32{
			float32(math.Cos(angle)),
			float32(math.Sin(angle)),
		}
	}

	r := NewReranker(NewRerankerParams{
		Embedder: &fakeEmbedder{vectors: vectors},
		Parallel: 2,
	})

	got, reranked := r.Rerank(context.Background(), "query", facts, 3)
	if !reranked {
		t.Fatal("expected reranking to be applied")
	}
	if len(got) != 3 {
		t.Fatalf("unexpected result length: got %d, want 3", len(got))
	}

	wantOrder := []string{"d", "b", "a"}
	for i, want := range wantOrder {
		if got[i].Fact != want {
			t.Fatalf("unexpected order at %d: got %q, want %q", i, got[i].Fact, want)
		}
	}
}

func TestRerankZeroNormVectorScoresZero(t *testing.T) {
	facts := []common.GraphFact{factNamed("zero"), factNamed("close"), factNamed("far")}
	vectors := map[string][]float32{
		"query":                 {1, 0},
		compositeText(facts[0]): {0, 0},
		compositeText(facts[1]): {1, 0.1},
		compositeText(facts[2]): {0.2, 1},
	}

	r := NewReranker(NewRerankerParams{Embedder: &fakeEmbedder{vectors: vectors}})

	got, reranked := r.Rerank(context.Background(), "query", facts, 2)
	if !reranked {
		t.Fatal("expected reranking to be applied")
	}
	for _, fact := range got {
		if fact.Fact == "zero" {
			t.Fatal("zero-norm fact must rank below all non-zero facts")
		}
	}
}

func TestRerankFallsBackOnEmbeddingFailure(t *testing.T) {
	facts := make([]common.GraphFact, 6)
	for i := range facts {
		facts[i] = factNamed(fmt.Sprintf("fact-%d", i))
	}

	tests := []struct {
		name     string
		embedder *fakeEmbedder
	}{
		{
			name:     "query embedding fails",
			embedder: &fakeEmbedder{failOn: "query", fallback: []float32{1, 0}},
		},
		{
			name:     "one fact embedding fails",
			embedder: &fakeEmbedder{failOn: compositeText(facts[3]), fallback: []float32{1, 0}},
		},
		{
			name:     "provider down entirely",
			embedder: &fakeEmbedder{err: errors.New("connection refused")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReranker(NewRerankerParams{Embedder: tt.embedder})

			got, reranked := r.Rerank(context.Background(), "query", facts, 4)
			if reranked {
				t.Fatal("expected fallback path, not a reranked result")
			}
			if len(got) != 4 {
				t.Fatalf("fallback must still return topK facts: got %d, want 4", len(got))
			}
			for i := range got {
				if got[i].Fact != facts[i].Fact {
					t.Fatalf("fallback must preserve original order: got %q at %d, want %q",
						got[i].Fact, i, facts[i].Fact)
				}
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite vectors", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("unexpected similarity: got %f, want %f", got, tt.want)
			}
		})
	}
}
