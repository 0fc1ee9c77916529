package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/providers"
)

// OpenAI is a provider for OpenAI-compatible chat completion APIs
type OpenAI struct {
	apiKey  string
	baseURL string
}

// New returns a new OpenAI provider. An empty baseURL uses api.openai.com.
func New(apiKey, baseURL string) *OpenAI {
	return &OpenAI{apiKey: apiKey, baseURL: baseURL}
}

// ExtractText sends the prompt and images as one multi-part user message
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	clientConfig := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		clientConfig.BaseURL = o.baseURL
	}
	client := goopenai.NewClientWithConfig(clientConfig)

	content := make([]goopenai.ChatMessagePart, 0, len(config.Images)+1)
	content = append(content, goopenai.ChatMessagePart{
		Type: goopenai.ChatMessagePartTypeText,
		Text: config.Prompt,
	})
	for _, img := range config.Images {
		content = append(content, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    images.DataURL(img.Data, img.Format),
				Detail: goopenai.ImageURLDetailAuto,
			},
		})
	}

	request := goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Temperature: float32(config.Temperature),
		MaxTokens:   4000,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:         goopenai.ChatMessageRoleUser,
				MultiContent: content,
			},
		},
	}
	if config.JSON {
		request.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
