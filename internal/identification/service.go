package identification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/partident/internal/gemini"
	"github.com/lehigh-university-libraries/partident/internal/models"
	"github.com/lehigh-university-libraries/partident/internal/ollama"
	"github.com/lehigh-university-libraries/partident/internal/openai"
	"github.com/lehigh-university-libraries/partident/internal/providers"
)

// Options selects and configures the vision provider
type Options struct {
	Provider      string
	Model         string
	Temperature   float64
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaURL     string
}

type Service struct {
	provider     providers.Provider
	providerName string
	model        string
	temperature  float64
}

// NewService builds the provider named in opts.
func NewService(opts Options) (*Service, error) {
	if opts.Provider == "" {
		opts.Provider = "gemini"
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}

	var provider providers.Provider
	switch opts.Provider {
	case "gemini":
		provider = gemini.New(opts.GeminiAPIKey)
	case "openai":
		provider = openai.New(opts.OpenAIAPIKey, opts.OpenAIBaseURL)
	case "ollama":
		provider = ollama.New(opts.OllamaURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}

	return NewServiceWithProvider(provider, opts.Provider, opts.Model, opts.Temperature), nil
}

func NewServiceWithProvider(provider providers.Provider, name, model string, temperature float64) *Service {
	return &Service{
		provider:     provider,
		providerName: name,
		model:        model,
		temperature:  temperature,
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "openai":
		return "gpt-4o"
	case "ollama":
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// Identify sends the ordered photos and a catalog snapshot to the provider.
// The catalog slice is only read.
func (s *Service) Identify(ctx context.Context, photos []models.PhotoCapture, catalog []models.CatalogItem) (*models.IdentificationResult, error) {
	prompt, err := BuildPrompt(catalog)
	if err != nil {
		return nil, err
	}

	imgs := make([]providers.Image, len(photos))
	for i, photo := range photos {
		imgs[i] = providers.Image{Data: photo.Data, Format: photo.Format}
	}

	start := time.Now()
	raw, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: s.temperature,
		Prompt:      prompt,
		Images:      imgs,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to identify part with %s: %w", s.providerName, err)
	}

	result, err := ParseResult(raw)
	if err != nil {
		slog.Warn("Engine returned malformed output", "provider", s.providerName, "model", s.model, "length", len(raw))
		return nil, err
	}

	slog.Info("Identified part",
		"provider", s.providerName,
		"model", s.model,
		"images", len(photos),
		"catalog_items", len(catalog),
		"matches", len(result.Parts),
		"duration", time.Since(start))
	return result, nil
}
