package hybrid

import (
	"reflect"
	"testing"

	"github.com/opslens/opslens/pkg/common"
)

func chunkWithEpisode(id string, episodeID string) common.Chunk {
	return common.Chunk{
		ID: id,
		Payload: common.ChunkPayload{
			TenantID:  "acme",
			EpisodeID: episodeID,
		},
	}
}

func TestExtractEpisodeIDs(t *testing.T) {
	tests := []struct {
		name   string
		chunks []common.Chunk
		want   []string
	}{
		{
			name: "unique ids with duplicates collapsed",
			chunks: []common.Chunk{
				chunkWithEpisode("c1", "ep-2"),
				chunkWithEpisode("c2", "ep-1"),
				chunkWithEpisode("c3", "ep-2"),
			},
			want: []string{"ep-1", "ep-2"},
		},
		{
			name: "chunks without episode id are dropped",
			chunks: []common.Chunk{
				chunkWithEpisode("c1", "ep-1"),
				chunkWithEpisode("c2", ""),
				chunkWithEpisode("c3", ""),
			},
			want: []string{"ep-1"},
		},
		{
			name: "no linked chunks yields empty set",
			chunks: []common.Chunk{
				chunkWithEpisode("c1", ""),
			},
			want: []string{},
		},
		{
			name:   "empty batch",
			chunks: nil,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEpisodeIDs(tt.chunks)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected episode ids: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractEpisodeIDsOrderIndependent(t *testing.T) {
	forward := []common.Chunk{
		chunkWithEpisode("c1", "ep-3"),
		chunkWithEpisode("c2", "ep-1"),
		chunkWithEpisode("c3", "ep-2"),
	}
	reversed := []common.Chunk{forward[2], forward[1], forward[0]}

	got1 := ExtractEpisodeIDs(forward)
	got2 := ExtractEpisodeIDs(reversed)
	if !reflect.DeepEqual(got1, got2) {
		t.Fatalf("extraction depends on input order: %v vs %v", got1, got2)
	}
}
