package hybrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/opslens/opslens/internal/util"
	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const (
	maxContextChunks  = 5
	maxContextFacts   = 20
	chunkExcerptRunes = 400

	noDocumentContext = "No relevant documents were found."
	noGraphContext    = "No graph context available."
)

// Completer is the slice of the AI client the synthesizer needs.
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error)
}

// Synthesizer builds a structured prompt from vector and graph context and
// asks a language model for the final answer. A failed model call degrades
// to an explicit apology string so callers always receive an answer field.
type Synthesizer struct {
	aiClient        Completer
	temperature     float64
	maxPromptTokens int
}

// NewSynthesizerParams defines the configuration for creating a Synthesizer.
// Temperature 0 makes answers deterministic, which the insight pipeline
// requires; conversational callers should pass a low non-zero value.
type NewSynthesizerParams struct {
	AIClient        Completer
	Temperature     float64
	MaxPromptTokens int
}

// NewSynthesizer creates a Synthesizer with the provided configuration.
func NewSynthesizer(params NewSynthesizerParams) *Synthesizer {
	maxTokens := params.MaxPromptTokens
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &Synthesizer{
		aiClient:        params.AIClient,
		temperature:     params.Temperature,
		maxPromptTokens: maxTokens,
	}
}

// Synthesize produces the final answer text for a query given its
// retrieved context. When both context blocks are empty the model is asked
// for an explicit no-data reply instead. It never returns an error: a
// failed model call yields a degraded answer string carrying the
// underlying failure.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	query string,
	chunks []common.Chunk,
	facts []common.GraphFact,
) string {
	if len(chunks) == 0 && len(facts) == 0 {
		return s.complete(ctx, query, fmt.Sprintf(ai.NoDataPrompt, query))
	}

	systemPrompt := fmt.Sprintf(
		ai.SynthesisPrompt,
		buildVectorContext(chunks),
		buildGraphContext(facts),
	)

	return s.complete(ctx, query, systemPrompt)
}

func (s *Synthesizer) complete(ctx context.Context, query string, systemPrompt string) string {
	s.checkTokenBudget(systemPrompt + query)

	answer, err := s.aiClient.GenerateCompletion(
		ctx,
		query,
		ai.WithSystemPrompts(systemPrompt),
		ai.WithTemperature(s.temperature),
	)
	if err != nil {
		logger.Error("Answer synthesis failed", "err", err)
		return fmt.Sprintf(
			"Sorry, I could not generate an answer for this question (%v). The retrieved context is included in this result; please try again.",
			err,
		)
	}

	return answer
}

// buildVectorContext renders at most maxContextChunks chunks, each with
// its document name, source, episode id and a bounded excerpt. An empty
// batch renders as an explicit placeholder so the prompt always carries
// two labeled sections.
func buildVectorContext(chunks []common.Chunk) string {
	if len(chunks) == 0 {
		return noDocumentContext
	}

	var b strings.Builder
	for i, chunk := range chunks {
		if i >= maxContextChunks {
			break
		}
		fmt.Fprintf(
			&b,
			"Document: %s (source: %s, episode: %s)\n%s\n\n",
			chunk.Payload.DocumentName,
			chunk.Payload.Source,
			chunk.Payload.EpisodeID,
			util.TruncateRunes(chunk.Text, chunkExcerptRunes),
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// buildGraphContext renders at most maxContextFacts facts as one line each.
func buildGraphContext(facts []common.GraphFact) string {
	if len(facts) == 0 {
		return noGraphContext
	}

	var b strings.Builder
	for i, fact := range facts {
		if i >= maxContextFacts {
			break
		}
		fmt.Fprintf(&b, "- %s (%s -> %s)\n", fact.Fact, fact.SourceName, fact.TargetName)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s *Synthesizer) checkTokenBudget(prompt string) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		logger.Debug("Token budget check skipped", "err", err)
		return
	}
	tokens := len(enc.Encode(prompt, nil, nil))
	if tokens > s.maxPromptTokens {
		logger.Warn(
			"Synthesis prompt exceeds token budget",
			"tokens", tokens,
			"budget", s.maxPromptTokens,
		)
	}
}
