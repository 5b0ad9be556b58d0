package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
	"github.com/ChamsBouzaiene/nanocoder/internal/engine"
)

// preset describes a known provider. Everything except anthropic speaks the
// OpenAI chat completions protocol.
type preset struct {
	anthropic bool
	keyEnv    string // "" means no key is required
	model     string
	baseURL   string
	localKey  string // placeholder key for local servers
}

var presets = map[string]preset{
	"openai":    {keyEnv: "OPENAI_API_KEY", model: "gpt-4o-mini"},
	"anthropic": {anthropic: true, keyEnv: "ANTHROPIC_API_KEY", model: "claude-3-5-sonnet-latest"},
	"kimi":      {keyEnv: "KIMI_API_KEY", model: "kimi-k2-250711", baseURL: "https://ark.ap-southeast.bytepluses.com/api/v3"},
	"gemini":    {keyEnv: "GEMINI_API_KEY", model: "gemini-1.5-flash", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"deepseek":  {keyEnv: "DEEPSEEK_API_KEY", model: "deepseek-chat", baseURL: "https://api.deepseek.com/v1"},
	"groq":      {keyEnv: "GROQ_API_KEY", model: "llama-3.1-70b-versatile", baseURL: "https://api.groq.com/openai/v1"},
	"glm":       {keyEnv: "GLM_API_KEY", model: "glm-4-plus", baseURL: "https://open.bigmodel.cn/api/paas/v4"},
	"lmstudio":  {model: "local-model", baseURL: "http://localhost:1234/v1", localKey: "lm-studio"},
	"ollama":    {model: "llama3.1", baseURL: "http://localhost:11434/v1", localKey: "ollama"},
}

// Supported lists the provider names NewClient accepts.
func Supported() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient creates the model client selected by cfg.Provider. Model, base
// URL and API key fall back to the provider's defaults and its key variable.
// It returns the client and the model name it will be asked for.
func NewClient(cfg config.Config, getenv func(string) string) (engine.ModelClient, string, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "openai"
	}
	p, ok := presets[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown provider: %s (supported: %s)", name, strings.Join(Supported(), ", "))
	}

	model := cfg.Model
	if model == "" {
		model = p.model
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = p.baseURL
	}
	apiKey := cfg.APIKey
	if apiKey == "" && p.keyEnv != "" {
		apiKey = strings.TrimSpace(getenv(p.keyEnv))
	}
	if apiKey == "" {
		if p.localKey == "" {
			return nil, "", fmt.Errorf("%s not set", p.keyEnv)
		}
		apiKey = p.localKey
	}

	if p.anthropic {
		client, err := NewAnthropicClient(apiKey, baseURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, model, nil
	}
	client, err := NewOpenAIClient(apiKey, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s client: %w", name, err)
	}
	return client, model, nil
}
