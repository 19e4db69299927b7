package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/opslens/opslens/pkg/common"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// episodeFactsQuery expands each episode to its mentioned entities and
// their relationships, keeping only edges that carry fact text.
const episodeFactsQuery = `
MATCH (ep:Episode)-[:MENTIONS]->(src:Entity)-[r:RELATES_TO]->(tgt:Entity)
WHERE ep.name IN $episode_ids AND r.fact IS NOT NULL
RETURN DISTINCT
	src.name    AS source_name,
	src.summary AS source_summary,
	r.name      AS relation,
	tgt.name    AS target_name,
	r.fact      AS fact,
	r.valid_at  AS valid_from,
	r.invalid_at AS valid_to,
	src.uuid    AS source_node_id,
	tgt.uuid    AS target_node_id,
	ep.name     AS episode_id
LIMIT $limit`

// FetchFactsByEpisodes retrieves entity relationship facts for the given
// episode ids in a single traversal. The limit bounds the candidate pool
// handed to the reranker, not the final fact count; the store returning
// fewer rows than the limit is normal.
func (c *Client) FetchFactsByEpisodes(
	ctx context.Context,
	episodeIDs []string,
	limit int,
) ([]common.GraphFact, error) {
	if len(episodeIDs) == 0 {
		return nil, nil
	}
	if limit < 1 {
		return nil, fmt.Errorf("graph store: fact limit must be >= 1, got %d", limit)
	}

	records, err := c.RunReadQuery(ctx, episodeFactsQuery, map[string]any{
		"episode_ids": episodeIDs,
		"limit":       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch facts by episodes: %w", err)
	}

	facts := make([]common.GraphFact, 0, len(records))
	for _, record := range records {
		row := record.AsMap()
		facts = append(facts, common.GraphFact{
			SourceName:    stringProp(row, "source_name"),
			SourceSummary: stringProp(row, "source_summary"),
			Relation:      stringProp(row, "relation"),
			TargetName:    stringProp(row, "target_name"),
			Fact:          stringProp(row, "fact"),
			ValidFrom:     stringProp(row, "valid_from"),
			ValidTo:       stringProp(row, "valid_to"),
			SourceNodeID:  stringProp(row, "source_node_id"),
			TargetNodeID:  stringProp(row, "target_node_id"),
			EpisodeID:     stringProp(row, "episode_id"),
		})
	}

	return DedupeFacts(facts), nil
}

// DedupeFacts drops repeated facts, keeping first occurrences in order.
// Two facts are the same when source, relation, target and fact text all
// match; DISTINCT in cypher cannot catch rows that differ only in node
// properties outside the identity tuple.
func DedupeFacts(facts []common.GraphFact) []common.GraphFact {
	seen := make(map[string]struct{}, len(facts))
	out := make([]common.GraphFact, 0, len(facts))
	for _, fact := range facts {
		key := fact.SourceName + "\x00" + fact.Relation + "\x00" + fact.TargetName + "\x00" + fact.Fact
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fact)
	}
	return out
}

func stringProp(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case neo4j.Time:
		return v.Time().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
