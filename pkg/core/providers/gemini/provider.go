// Package gemini connects Boncuk to the Google Gemini API through the genai
// SDK: realtime audio/video sessions over Live, and one-shot content
// generation for the companion tools.
package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core"
)

const (
	// DefaultTextModel answers chat, mood and expert requests.
	DefaultTextModel = "gemini-3-flash-preview"
)

// Provider wraps a genai client.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	client *genai.Client
}

// New creates a provider for the Gemini API. An empty apiKey is a
// credential_missing error.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, core.NewCredentialMissingError("gemini api key is not configured")
	}
	p := &Provider{
		apiKey: apiKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, core.NewConnectionError("create gemini client", err)
	}
	p.client = client
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// GenerateContent runs one request/response call. The signature matches
// genai's Models.GenerateContent so callers can build genai contents
// directly; errors are mapped onto core error types.
func (p *Provider) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "" {
		model = DefaultTextModel
	}
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		p.logger.Warn("gemini generate failed", "model", model, "err", err)
		return nil, mapError(err)
	}
	return resp, nil
}
