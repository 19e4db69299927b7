package ai

import "testing"

type insightPayload struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  insightPayload
	}{
		{
			name:  "standard json",
			input: `{"title": "Blocked orders", "severity": "critical"}`,
			want:  insightPayload{Title: "Blocked orders", Severity: "critical"},
		},
		{
			name:  "double encoded",
			input: `"{\"title\": \"Blocked orders\", \"severity\": \"critical\"}"`,
			want:  insightPayload{Title: "Blocked orders", Severity: "critical"},
		},
		{
			name:  "malformed but repairable",
			input: `{title: "Blocked orders", severity: "critical"}`,
			want:  insightPayload{Title: "Blocked orders", Severity: "critical"},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"title": "Blocked orders", "severity": "critical"}`,
			want:  insightPayload{Title: "Blocked orders", Severity: "critical"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got insightPayload
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected payload: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(insightPayload{})
	if schema == nil {
		t.Fatal("expected a schema, got nil")
	}

	schema = GenerateSchema(&insightPayload{})
	if schema == nil {
		t.Fatal("expected a schema for pointer type, got nil")
	}
}
