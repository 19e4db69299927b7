package hybrid

import (
	"sort"

	"github.com/opslens/opslens/pkg/common"
)

// ExtractEpisodeIDs returns the unique episode ids present in a batch of
// vector search hits. Chunks without an episode id are skipped. The result
// is sorted, so the same batch yields the same slice regardless of input
// ordering.
//
// An empty result is the signal to skip graph lookup entirely; it is not
// an error.
func ExtractEpisodeIDs(chunks []common.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		id := chunk.Payload.EpisodeID
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
