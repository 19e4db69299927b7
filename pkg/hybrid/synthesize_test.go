package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/common"
)

// fakeCompleter records the prompts and options it receives and returns a
// canned answer.
type fakeCompleter struct {
	answer string
	err    error

	prompts       []string
	systemPrompts []string
	temperatures  []float64
}

func (f *fakeCompleter) GenerateCompletion(
	_ context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	f.prompts = append(f.prompts, prompt)
	f.systemPrompts = append(f.systemPrompts, strings.Join(options.SystemPrompts, "\n"))
	f.temperatures = append(f.temperatures, options.Temperature)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func testChunk(name string, text string) common.Chunk {
	return common.Chunk{
		ID:   name,
		Text: text,
		Payload: common.ChunkPayload{
			TenantID:     "acme",
			Source:       "gmail",
			DocumentName: name,
			EpisodeID:    "ep-1",
		},
	}
}

func TestSynthesizeCapsVectorContextAtFiveChunks(t *testing.T) {
	completer := &fakeCompleter{answer: "done"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	chunks := make([]common.Chunk, 7)
	for i := range chunks {
		chunks[i] = testChunk(fmt.Sprintf("doc-%d", i), "body")
	}

	s.Synthesize(context.Background(), "question", chunks, nil)

	prompt := completer.systemPrompts[0]
	for i := 0; i < 5; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("doc-%d", i)) {
			t.Fatalf("expected chunk doc-%d in prompt", i)
		}
	}
	for i := 5; i < 7; i++ {
		if strings.Contains(prompt, fmt.Sprintf("doc-%d", i)) {
			t.Fatalf("chunk doc-%d beyond the cap must not be rendered", i)
		}
	}
}

func TestSynthesizeTruncatesChunkExcerpts(t *testing.T) {
	completer := &fakeCompleter{answer: "done"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	long := strings.Repeat("x", 450)
	s.Synthesize(context.Background(), "question", []common.Chunk{testChunk("doc", long)}, nil)

	prompt := completer.systemPrompts[0]
	if strings.Contains(prompt, long) {
		t.Fatal("excerpt was not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 400)+"...") {
		t.Fatal("expected 400-rune excerpt with ellipsis marker")
	}
}

func TestSynthesizeCapsGraphContextAtTwentyFacts(t *testing.T) {
	completer := &fakeCompleter{answer: "done"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	facts := make([]common.GraphFact, 25)
	for i := range facts {
		facts[i] = common.GraphFact{
			SourceName: "a",
			TargetName: "b",
			Fact:       fmt.Sprintf("fact-%d", i),
		}
	}

	s.Synthesize(context.Background(), "question", nil, facts)

	prompt := completer.systemPrompts[0]
	if !strings.Contains(prompt, "- fact-19 (a -> b)") {
		t.Fatal("expected fact within cap rendered with fact line format")
	}
	if strings.Contains(prompt, "fact-20") {
		t.Fatal("fact beyond the cap must not be rendered")
	}
}

func TestSynthesizeRendersPlaceholdersForEmptyContext(t *testing.T) {
	completer := &fakeCompleter{answer: "done"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	// Graph context missing: its block renders as a placeholder.
	s.Synthesize(context.Background(), "question", []common.Chunk{testChunk("doc", "body")}, nil)
	if prompt := completer.systemPrompts[0]; !strings.Contains(prompt, noGraphContext) {
		t.Fatal("expected explicit graph placeholder for empty graph context")
	}

	// Vector context missing: same, for the document block.
	s.Synthesize(context.Background(), "question", nil, []common.GraphFact{{Fact: "f", SourceName: "a", TargetName: "b"}})
	if prompt := completer.systemPrompts[1]; !strings.Contains(prompt, noDocumentContext) {
		t.Fatal("expected explicit document placeholder for empty vector context")
	}
}

func TestSynthesizeUsesNoDataPromptWhenContextEmpty(t *testing.T) {
	completer := &fakeCompleter{answer: "nothing indexed"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	answer := s.Synthesize(context.Background(), "who handles the Delta account?", nil, nil)
	if answer != "nothing indexed" {
		t.Fatalf("unexpected answer %q", answer)
	}

	prompt := completer.systemPrompts[0]
	if !strings.Contains(prompt, "who handles the Delta account?") {
		t.Fatal("no-data prompt must carry the user question")
	}
	if strings.Contains(prompt, noDocumentContext) || strings.Contains(prompt, noGraphContext) {
		t.Fatal("no-data path must not render the context sections")
	}
}

func TestSynthesizePassesConfiguredTemperature(t *testing.T) {
	completer := &fakeCompleter{answer: "done"}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer, Temperature: 0})

	s.Synthesize(context.Background(), "question", nil, nil)

	if completer.temperatures[0] != 0 {
		t.Fatalf("expected deterministic temperature 0, got %f", completer.temperatures[0])
	}
}

func TestSynthesizeDegradesOnModelFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model unavailable")}
	s := NewSynthesizer(NewSynthesizerParams{AIClient: completer})

	answer := s.Synthesize(context.Background(), "question", nil, nil)
	if answer == "" {
		t.Fatal("expected a degraded answer string, got empty")
	}
	if !strings.Contains(answer, "model unavailable") {
		t.Fatalf("degraded answer must carry the underlying error, got %q", answer)
	}
}
