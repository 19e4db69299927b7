// Package insight runs batches of hybrid queries and distills the answers
// into structured findings a worker can archive and surface to operators.
package insight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opslens/opslens/internal/util"
	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/hybrid"
	"github.com/opslens/opslens/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelScans = 4
	defaultGraphFacts    = 10
	maxDistillTries      = 3

	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Insight is one distilled finding for a tenant.
type Insight struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenant_id"`
	Question   string               `json:"question"`
	Title      string               `json:"title"`
	Severity   string               `json:"severity"`
	Body       string               `json:"body"`
	EpisodeIDs []string             `json:"episode_ids,omitempty"`
	Metadata   common.QueryMetadata `json:"metadata"`
	CreatedAt  time.Time            `json:"created_at"`
}

type insightResponse struct {
	Title    string `json:"title" jsonschema_description:"Short headline for the finding"`
	Severity string `json:"severity" jsonschema:"enum=info,enum=warning,enum=critical"`
	Body     string `json:"body" jsonschema_description:"Self-contained summary of the finding"`
}

// Querier is the slice of the hybrid orchestrator the scanner needs.
type Querier interface {
	Query(ctx context.Context, req hybrid.Request) (*common.QueryResult, error)
}

// Formatter is the slice of the AI client the scanner needs.
type Formatter interface {
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...ai.GenerateOption,
	) error
}

// Scanner answers a batch of standing questions for one tenant and turns
// each answer into an Insight. Questions run concurrently with a bounded
// task group; one failed question never fails the batch.
type Scanner struct {
	orchestrator Querier
	aiClient     Formatter
	parallel     int
}

// NewScannerParams defines the configuration for creating a Scanner.
type NewScannerParams struct {
	Orchestrator Querier
	AIClient     Formatter
	Parallel     int
}

// NewScanner creates a Scanner with the provided configuration.
func NewScanner(params NewScannerParams) *Scanner {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = defaultParallelScans
	}
	return &Scanner{
		orchestrator: params.Orchestrator,
		aiClient:     params.AIClient,
		parallel:     parallel,
	}
}

// Scan runs every question through the hybrid pipeline and distills the
// answers. Failed questions are logged and dropped; the returned slice
// keeps the order of the questions that succeeded.
func (s *Scanner) Scan(ctx context.Context, tenantID string, questions []string) ([]*Insight, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("insight scan: tenant id is required")
	}
	if len(questions) == 0 {
		return []*Insight{}, nil
	}

	results := make([]*Insight, len(questions))
	mu := sync.Mutex{}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, question := range questions {
		idx, q := i, question
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				insight, err := s.scanOne(gCtx, tenantID, q)
				if err != nil {
					logger.Warn("Insight question failed, skipping", "tenant", tenantID, "question", q, "err", err)
					return nil
				}
				mu.Lock()
				results[idx] = insight
				mu.Unlock()
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("insight scan: %w", err)
	}

	insights := make([]*Insight, 0, len(results))
	for _, insight := range results {
		if insight != nil {
			insights = append(insights, insight)
		}
	}

	logger.Info(
		"Insight scan complete",
		"tenant", tenantID,
		"questions", len(questions),
		"insights", len(insights),
	)
	return insights, nil
}

func (s *Scanner) scanOne(ctx context.Context, tenantID string, question string) (*Insight, error) {
	result, err := s.orchestrator.Query(ctx, hybrid.Request{
		Query:         question,
		TenantID:      tenantID,
		MaxGraphFacts: defaultGraphFacts,
		IncludeGraph:  true,
	})
	if err != nil {
		return nil, err
	}

	res, err := util.RetryWithContext(ctx, maxDistillTries, func(ctx context.Context) (insightResponse, error) {
		var out insightResponse
		err := s.aiClient.GenerateCompletionWithFormat(
			ctx,
			"distill_insight",
			"Distill a question and answer pair into a structured insight.",
			fmt.Sprintf(ai.InsightPrompt, question, result.Answer),
			&out,
			ai.WithTemperature(0),
		)
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("distill answer: %w", err)
	}
	if res.Severity != SeverityInfo && res.Severity != SeverityWarning && res.Severity != SeverityCritical {
		res.Severity = SeverityInfo
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate insight id: %w", err)
	}

	return &Insight{
		ID:         id,
		TenantID:   tenantID,
		Question:   question,
		Title:      res.Title,
		Severity:   res.Severity,
		Body:       res.Body,
		EpisodeIDs: result.EpisodeIDs,
		Metadata:   result.Metadata,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
