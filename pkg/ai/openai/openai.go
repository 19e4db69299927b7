package openai

import (
	"sync"

	"github.com/opslens/opslens/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// Client talks to an OpenAI-compatible API for the chat and embedding
// operations the retrieval pipeline needs. Separate underlying clients are
// kept for embeddings and chat so the two concerns can point at different
// endpoints (e.g. a local embedding server and a hosted chat model).
//
// A Client should be created using NewClient.
type Client struct {
	embeddingModel string
	chatModel      string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	timeoutMin    int
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams defines the configuration parameters for creating a Client.
//
// EmbeddingModel and ChatModel select the models for the two operations.
// EmbeddingURL/EmbeddingKey and ChatURL/ChatKey configure the endpoints.
// MaxConcurrentEmbeddings bounds in-flight embedding requests; it should be
// sized to the provider's rate limit.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	TimeoutMinutes          int
	MaxConcurrentEmbeddings int64
}

// NewClient creates and returns a new Client configured with the provided
// parameters.
//
// Example:
//
//	client := openai.NewClient(openai.NewClientParams{
//		EmbeddingModel: "text-embedding-3-small",
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//		ChatKey:        os.Getenv("OPENAI_API_KEY"),
//	})
func NewClient(params NewClientParams) *Client {
	timeoutMin := params.TimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = 5
	}
	maxEmbeddings := params.MaxConcurrentEmbeddings
	if maxEmbeddings <= 0 {
		maxEmbeddings = 8
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,

		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,
		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,

		timeoutMin:    timeoutMin,
		embeddingLock: semaphore.NewWeighted(maxEmbeddings),

		ChatClient:      newAPIClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newAPIClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *Client) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears the accumulated usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a snapshot of the accumulated usage metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
