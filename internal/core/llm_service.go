package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"gwi.com/ai-chat-relay/internal/config"
	"gwi.com/ai-chat-relay/internal/logger"
)

// NoResponseFallback is returned as the reply when the provider answers
// without any content.
const NoResponseFallback = "No response from AI"

// Completer produces a single, non-streaming reply to one user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// NewCompleter builds the completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.Config, log *logger.Logger) (Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, log), nil
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}

type OpenAICompleter struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

func NewOpenAICompleter(apiKey, model, baseURL string, log *logger.Logger) *OpenAICompleter {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log.With("service", "OpenAICompleter", "model", model),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", newError(ErrorCompletion, "openai_request_failed", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.log.Warn("OpenAI response had no content, using fallback reply")
		return NoResponseFallback, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Close() error { return nil }

type GeminiCompleter struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCompleter{
		client: client,
		model:  model,
		log:    log.With("service", "GeminiCompleter", "model", model),
	}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", newError(ErrorCompletion, "gemini_request_failed", err)
	}

	text := geminiReplyText(resp)
	if text == "" {
		c.log.Warn("Gemini response had no text, using fallback reply")
		return NoResponseFallback, nil
	}
	return text, nil
}

// geminiReplyText joins the text parts of the first candidate. It returns ""
// when the response carries no text at all.
func geminiReplyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	return responseText.String()
}

func (c *GeminiCompleter) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
