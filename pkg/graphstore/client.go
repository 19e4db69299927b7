package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client executes read-only traversal queries against the knowledge graph.
// The graph is built and maintained by the graph construction subsystem;
// this client never writes to it.
//
// A Client is safe for concurrent use across overlapping queries.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewClientParams defines the configuration for creating a graph Client.
type NewClientParams struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewClient creates a graph store client and verifies connectivity.
//
// Example:
//
//	client, err := graphstore.NewClient(ctx, graphstore.NewClientParams{
//		URI:      "neo4j://localhost:7687",
//		Username: "neo4j",
//		Password: os.Getenv("NEO4J_PASSWORD"),
//	})
func NewClient(ctx context.Context, params NewClientParams) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("graph store: create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph store: verify connectivity: %w", err)
	}

	return &Client{
		driver:   driver,
		database: params.Database,
	}, nil
}

// Close releases the underlying driver. Call once at process shutdown.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// RunReadQuery executes a parameterized read-only query and returns the
// result rows. Parameters are always passed separately from the query
// text; callers must not interpolate identifiers into cypher.
func (c *Client) RunReadQuery(
	ctx context.Context,
	cypher string,
	params map[string]any,
) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		c.driver,
		cypher,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("graph store: run read query: %w", err)
	}

	return result.Records, nil
}
