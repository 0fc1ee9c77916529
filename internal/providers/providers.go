package providers

import (
	"context"
)

// Image is one encoded image handed to a provider, in capture order
type Image struct {
	Data   []byte
	Format string
}

// Config represents the configuration for an LLM provider call
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Images      []Image
	// JSON asks the provider to constrain its output to a JSON object
	JSON bool
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
