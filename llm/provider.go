// Package llm provides the multi-provider chat/embedding abstraction every
// extraction pass and the retrieval generation step calls through,
// adapted wholesale from the teacher's llm package.
package llm

import (
	"context"
	"fmt"
)

// Provider is the minimal surface every backend implements.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VisionProvider is implemented by providers that also accept image
// content; not every Provider needs to support it.
type VisionProvider interface {
	ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single chat completion request.
type ChatRequest struct {
	Model          string
	Messages       []Message
	Temperature    float64
	MaxTokens      int
	ResponseFormat string // "" or "json_object"
}

// Message is one chat turn.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// VisionChatRequest augments ChatRequest with multimodal content parts.
type VisionChatRequest struct {
	Model       string
	Messages    []VisionMessage
	Temperature float64
	MaxTokens   int
}

// VisionMessage carries mixed text/image content.
type VisionMessage struct {
	Role  string
	Parts []ContentPart
}

// ContentPart is one piece of a VisionMessage.
type ContentPart struct {
	Type     string // "text" or "image_url"
	Text     string
	ImageURL *ImageURL
}

// ImageURL references an inline or remote image.
type ImageURL struct {
	URL string
}

// ChatResponse is the normalized response shape across providers.
type ChatResponse struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Config names one provider/model/endpoint triple.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewProvider dispatches on cfg.Provider to a concrete implementation,
// following the teacher's provider.go switch.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "lmstudio":
		return NewLMStudio(cfg), nil
	case "openrouter":
		return NewOpenRouter(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	case "groq":
		return NewGroq(cfg), nil
	case "xai":
		return NewXAI(cfg), nil
	case "gemini":
		return NewGemini(cfg), nil
	case "custom":
		return NewCustom(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
