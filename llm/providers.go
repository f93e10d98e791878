package llm

import "context"

// The remaining providers are all OpenAI-compatible and differ only in
// default base URL, matching the teacher's one-wrapper-per-provider
// layout (ollama.go being the one exception, since it prefers its native
// embeddings endpoint).

type compatProvider struct {
	base openAICompatClient
}

func newCompatProvider(cfg Config, defaultBaseURL string) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &compatProvider{base: newOpenAICompatClient(cfg)}
}

func (p *compatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *compatProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}

func (p *compatProvider) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	return p.base.chatWithImages(ctx, req)
}

// NewLMStudio creates a provider for a local LM Studio server.
func NewLMStudio(cfg Config) Provider { return newCompatProvider(cfg, "http://localhost:1234") }

// NewOpenRouter creates a provider for OpenRouter's hosted API.
func NewOpenRouter(cfg Config) Provider {
	return newCompatProvider(cfg, "https://openrouter.ai/api")
}

// NewOpenAI creates a provider for OpenAI's hosted API.
func NewOpenAI(cfg Config) Provider { return newCompatProvider(cfg, "https://api.openai.com") }

// NewGroq creates a provider for Groq's hosted API.
func NewGroq(cfg Config) Provider { return newCompatProvider(cfg, "https://api.groq.com/openai") }

// NewXAI creates a provider for xAI's hosted API.
func NewXAI(cfg Config) Provider { return newCompatProvider(cfg, "https://api.x.ai") }

// NewGemini creates a provider for Google's Gemini OpenAI-compatible
// endpoint.
func NewGemini(cfg Config) Provider {
	return newCompatProvider(cfg, "https://generativelanguage.googleapis.com/v1beta/openai")
}

// NewCustom creates a provider for any OpenAI-compatible endpoint the
// caller names explicitly via cfg.BaseURL.
func NewCustom(cfg Config) Provider { return newCompatProvider(cfg, cfg.BaseURL) }
