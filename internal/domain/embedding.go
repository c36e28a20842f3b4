package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingVariant selects the embedding service flavour explicitly.
// Endpoint URLs are never inspected to guess it.
type EmbeddingVariant string

// Supported embedding variants.
const (
	// VariantOpenAI is any OpenAI-compatible endpoint (OpenAI, Azure AI model inference, Nebius).
	VariantOpenAI EmbeddingVariant = "openai"
	// VariantAzureOpenAI is an Azure OpenAI resource; requires an API version.
	VariantAzureOpenAI EmbeddingVariant = "azure_openai"
	// VariantOllama is a local Ollama server.
	VariantOllama EmbeddingVariant = "ollama"
)

// Valid reports whether v is a known variant.
func (v EmbeddingVariant) Valid() bool {
	switch v {
	case VariantOpenAI, VariantAzureOpenAI, VariantOllama:
		return true
	default:
		return false
	}
}
