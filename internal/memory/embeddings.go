package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"companionhk/internal/config"
)

// EmbeddingProvider produces a fixed-dimension vector for a text.
type EmbeddingProvider interface {
	Name() string
	Model() string
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbeddingProvider selects the MiniMax embedding backend when configured,
// else the deterministic local stub.
func NewEmbeddingProvider(cfg *config.Config) EmbeddingProvider {
	if cfg.MiniMaxEnabled && cfg.MiniMaxAPIKey != "" {
		return newMiniMaxEmbeddings(cfg)
	}
	return newStubEmbeddings(cfg.MemoryEmbeddingDimensions)
}

type miniMaxEmbeddings struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

func newMiniMaxEmbeddings(cfg *config.Config) *miniMaxEmbeddings {
	clientConfig := openai.DefaultConfig(cfg.MiniMaxAPIKey)
	clientConfig.BaseURL = cfg.MiniMaxBaseURL

	return &miniMaxEmbeddings{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.MemoryEmbeddingModel,
		dimensions: cfg.MemoryEmbeddingDimensions,
		timeout:    cfg.ProviderTimeout,
	}
}

func (p *miniMaxEmbeddings) Name() string    { return "minimax" }
func (p *miniMaxEmbeddings) Model() string   { return p.model }
func (p *miniMaxEmbeddings) Dimensions() int { return p.dimensions }

func (p *miniMaxEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("minimax embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("minimax embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// stubEmbeddings derives a deterministic pseudo-vector from the text hash so
// persistence stays exercised without a live embedding provider.
type stubEmbeddings struct {
	dimensions int
}

func newStubEmbeddings(dimensions int) *stubEmbeddings {
	if dimensions < 1 {
		dimensions = 1536
	}
	return &stubEmbeddings{dimensions: dimensions}
}

func (p *stubEmbeddings) Name() string    { return "embedding-stub" }
func (p *stubEmbeddings) Model() string   { return "hash-v1" }
func (p *stubEmbeddings) Dimensions() int { return p.dimensions }

func (p *stubEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))
	vector := make([]float32, p.dimensions)
	for i := range vector {
		offset := (i * 4) % (len(digest) - 4)
		raw := binary.BigEndian.Uint32(digest[offset : offset+4])
		// Mix the index in so dimensions beyond the digest differ.
		raw ^= uint32(i) * 2654435761
		vector[i] = float32(raw%2000)/1000.0 - 1.0
	}
	return vector, nil
}
