package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"companionhk/internal/config"
)

const exaSearchURL = "https://api.exa.ai/search"

// ExaProvider performs web search for chat context enrichment.
type ExaProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewExaProvider(cfg *config.Config) *ExaProvider {
	return &ExaProvider{
		apiKey: cfg.ExaAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
	}
}

func (p *ExaProvider) Name() string {
	return "exa"
}

type exaSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Contents   struct {
		Summary bool `json:"summary"`
	} `json:"contents"`
}

type exaSearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Summary string `json:"summary"`
	} `json:"results"`
}

func (p *ExaProvider) Retrieve(ctx context.Context, query string, maxResults int) ([]RetrievalEntry, error) {
	reqBody := exaSearchRequest{Query: query, NumResults: maxResults}
	reqBody.Contents.Summary = true

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaSearchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval request: status %d", resp.StatusCode)
	}

	var body exaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}

	entries := make([]RetrievalEntry, 0, len(body.Results))
	for _, result := range body.Results {
		entries = append(entries, RetrievalEntry{
			Title:   strings.TrimSpace(result.Title),
			URL:     result.URL,
			Summary: strings.TrimSpace(result.Summary),
			Source:  p.Name(),
		})
	}
	return entries, nil
}

// StubRetrievalProvider stands in when live web search is unavailable.
type StubRetrievalProvider struct{}

func NewStubRetrievalProvider() *StubRetrievalProvider {
	return &StubRetrievalProvider{}
}

func (p *StubRetrievalProvider) Name() string {
	return "retrieval-stub"
}

func (p *StubRetrievalProvider) Retrieve(ctx context.Context, query string, maxResults int) ([]RetrievalEntry, error) {
	return nil, nil
}
