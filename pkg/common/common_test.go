package common

import "testing"

func TestNormalizePayload(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want ChunkPayload
	}{
		{
			name: "complete payload",
			raw: map[string]any{
				"tenant_id":     "acme",
				"source":        "gmail",
				"document_name": "Q3 order status",
				"document_type": "email",
				"chunk_index":   float64(2),
				"total_chunks":  float64(5),
				"episode_id":    "ep-1",
			},
			want: ChunkPayload{
				TenantID:     "acme",
				Source:       "gmail",
				DocumentName: "Q3 order status",
				DocumentType: "email",
				ChunkIndex:   2,
				TotalChunks:  5,
				EpisodeID:    "ep-1",
			},
		},
		{
			name: "missing optional fields",
			raw: map[string]any{
				"tenant_id": "acme",
			},
			want: ChunkPayload{TenantID: "acme"},
		},
		{
			name: "mistyped fields fall back to zero values",
			raw: map[string]any{
				"tenant_id":   42,
				"chunk_index": "three",
			},
			want: ChunkPayload{},
		},
		{
			name: "integer typed counts",
			raw: map[string]any{
				"chunk_index":  1,
				"total_chunks": int64(4),
			},
			want: ChunkPayload{ChunkIndex: 1, TotalChunks: 4},
		},
		{
			name: "nil map",
			raw:  nil,
			want: ChunkPayload{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePayload(tt.raw)
			if got != tt.want {
				t.Fatalf("unexpected payload: got %+v, want %+v", got, tt.want)
			}
		})
	}
}
