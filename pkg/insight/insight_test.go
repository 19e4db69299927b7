package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/hybrid"
)

// fakeQuerier answers with a canned result per question and fails for
// questions listed in failOn.
type fakeQuerier struct {
	failOn map[string]bool
}

func (f *fakeQuerier) Query(_ context.Context, req hybrid.Request) (*common.QueryResult, error) {
	if f.failOn[req.Query] {
		return nil, errors.New("vector store unavailable")
	}
	return &common.QueryResult{
		Answer:     "answer to " + req.Query,
		EpisodeIDs: []string{"ep-1"},
		Metadata:   common.QueryMetadata{NumVectorHits: 3, GraphQueried: true},
	}, nil
}

// fakeFormatter fills out with a fixed response derived from the prompt.
type fakeFormatter struct {
	severity string
	err      error
}

func (f *fakeFormatter) GenerateCompletionWithFormat(
	_ context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	_ ...ai.GenerateOption,
) error {
	if f.err != nil {
		return f.err
	}
	severity := f.severity
	if severity == "" {
		severity = SeverityWarning
	}
	raw, _ := json.Marshal(map[string]string{
		"title":    "finding",
		"severity": severity,
		"body":     prompt[:20],
	})
	return json.Unmarshal(raw, out)
}

func TestScanProducesOneInsightPerQuestion(t *testing.T) {
	s := NewScanner(NewScannerParams{
		Orchestrator: &fakeQuerier{},
		AIClient:     &fakeFormatter{},
		Parallel:     2,
	})

	questions := []string{"q-one", "q-two", "q-three"}
	insights, err := s.Scan(context.Background(), "acme", questions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(insights) != len(questions) {
		t.Fatalf("expected %d insights, got %d", len(questions), len(insights))
	}
	for i, insight := range insights {
		if insight.Question != questions[i] {
			t.Fatalf("expected question order preserved, got %q at %d", insight.Question, i)
		}
		if insight.ID == "" {
			t.Fatal("expected generated insight id")
		}
		if insight.TenantID != "acme" {
			t.Fatalf("unexpected tenant %q", insight.TenantID)
		}
		if insight.Severity != SeverityWarning {
			t.Fatalf("unexpected severity %q", insight.Severity)
		}
	}
}

func TestScanIsolatesFailedQuestions(t *testing.T) {
	s := NewScanner(NewScannerParams{
		Orchestrator: &fakeQuerier{failOn: map[string]bool{"q-two": true}},
		AIClient:     &fakeFormatter{},
	})

	insights, err := s.Scan(context.Background(), "acme", []string{"q-one", "q-two", "q-three"})
	if err != nil {
		t.Fatalf("one failed question must not fail the batch: %v", err)
	}

	if len(insights) != 2 {
		t.Fatalf("expected 2 insights, got %d", len(insights))
	}
	for _, insight := range insights {
		if insight.Question == "q-two" {
			t.Fatal("failed question must be filtered out")
		}
	}
}

func TestScanNormalizesUnknownSeverity(t *testing.T) {
	s := NewScanner(NewScannerParams{
		Orchestrator: &fakeQuerier{},
		AIClient:     &fakeFormatter{severity: "catastrophic"},
	})

	insights, err := s.Scan(context.Background(), "acme", []string{"q-one"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 1 || insights[0].Severity != SeverityInfo {
		t.Fatalf("expected unknown severity normalized to info, got %+v", insights)
	}
}

func TestScanValidatesInput(t *testing.T) {
	s := NewScanner(NewScannerParams{Orchestrator: &fakeQuerier{}, AIClient: &fakeFormatter{}})

	if _, err := s.Scan(context.Background(), "", []string{"q"}); err == nil {
		t.Fatal("expected error for missing tenant id")
	} else if !strings.Contains(err.Error(), "tenant id") {
		t.Fatalf("error must name the missing field, got %v", err)
	}

	insights, err := s.Scan(context.Background(), "acme", nil)
	if err != nil {
		t.Fatalf("unexpected error for empty batch: %v", err)
	}
	if len(insights) != 0 {
		t.Fatalf("expected empty result for empty batch, got %d", len(insights))
	}
}
