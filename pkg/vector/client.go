package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/common"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Client performs similarity search and filtered retrieval against the
// document chunk index in Postgres/pgvector. The index is written by the
// ingestion pipeline; this client only reads it.
//
// A Client is safe for concurrent use across overlapping queries.
type Client struct {
	conn     *pgxpool.Pool
	aiClient ai.Client
}

// NewClientParams defines the configuration for creating a vector Client.
type NewClientParams struct {
	Conn     *pgxpool.Pool
	AIClient ai.Client
}

// NewClient creates a vector store client backed by the given connection
// pool. The AI client is used to embed query text before searching.
func NewClient(params NewClientParams) *Client {
	return &Client{
		conn:     params.Conn,
		aiClient: params.AIClient,
	}
}

// SearchParams describes one similarity search. TenantID is mandatory:
// tenant isolation is enforced here and never inferred from any other
// field. Source is an optional exact-match filter on the source system.
type SearchParams struct {
	Query    string
	TenantID string
	TopK     int
	Source   string
}

// ScrollFilter describes a filtered, unordered read of the chunk index.
// Zero-valued fields are not applied; TenantID is mandatory.
type ScrollFilter struct {
	TenantID     string
	EpisodeID    string
	Source       string
	DocumentType string
}

// Search embeds the query text and returns up to TopK chunks ordered by
// descending cosine similarity. An empty result set is not an error; only
// store or embedding connectivity failures are.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]common.Chunk, error) {
	if params.TopK < 1 {
		return nil, fmt.Errorf("vector search: top_k must be >= 1, got %d", params.TopK)
	}
	if params.TenantID == "" {
		return nil, fmt.Errorf("vector search: tenant id is required")
	}

	embedding, err := c.aiClient.GenerateEmbedding(ctx, []byte(params.Query))
	if err != nil {
		return nil, fmt.Errorf("vector search: embed query: %w", err)
	}

	query := `
		SELECT id, text, tenant_id, source, document_name, document_type,
		       chunk_index, total_chunks, episode_id,
		       1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE tenant_id = $2`
	args := []any{pgvector.NewVector(embedding), params.TenantID}

	if params.Source != "" {
		args = append(args, params.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}

	args = append(args, params.TopK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: query store: %w", err)
	}
	defer rows.Close()

	chunks := make([]common.Chunk, 0, params.TopK)
	for rows.Next() {
		var chunk common.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.Payload.TenantID,
			&chunk.Payload.Source,
			&chunk.Payload.DocumentName,
			&chunk.Payload.DocumentType,
			&chunk.Payload.ChunkIndex,
			&chunk.Payload.TotalChunks,
			&chunk.Payload.EpisodeID,
			&chunk.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("vector search: scan row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: read rows: %w", err)
	}

	return chunks, nil
}

// ScrollByFilter returns all chunks matching the filter in store-native
// order. It backs the episode context lookup path, where a caller already
// knows which episode it wants and needs every chunk of it.
func (c *Client) ScrollByFilter(ctx context.Context, filter ScrollFilter) ([]common.Chunk, error) {
	if filter.TenantID == "" {
		return nil, fmt.Errorf("vector scroll: tenant id is required")
	}

	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}

	if filter.EpisodeID != "" {
		args = append(args, filter.EpisodeID)
		conditions = append(conditions, fmt.Sprintf("episode_id = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}

	query := `
		SELECT id, text, tenant_id, source, document_name, document_type,
		       chunk_index, total_chunks, episode_id
		FROM document_chunks
		WHERE ` + strings.Join(conditions, " AND ")

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector scroll: query store: %w", err)
	}
	defer rows.Close()

	chunks := make([]common.Chunk, 0)
	for rows.Next() {
		var chunk common.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.Payload.TenantID,
			&chunk.Payload.Source,
			&chunk.Payload.DocumentName,
			&chunk.Payload.DocumentType,
			&chunk.Payload.ChunkIndex,
			&chunk.Payload.TotalChunks,
			&chunk.Payload.EpisodeID,
		)
		if err != nil {
			return nil, fmt.Errorf("vector scroll: scan row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector scroll: read rows: %w", err)
	}

	return chunks, nil
}
