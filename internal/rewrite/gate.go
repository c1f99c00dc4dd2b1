package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/pkg/httpclient"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout       = 30 * time.Second
)

// Config selects the model provider used for text rewriting. When Enabled is
// false the gate passes every text through unchanged and performs no network
// calls.
type Config struct {
	Enabled       bool
	Provider      string
	OpenAIAPIKey  string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIBaseURL string
	GeminiBaseURL string
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if c.GeminiBaseURL == "" {
		c.GeminiBaseURL = defaultGeminiBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = "gpt-3.5-turbo"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-pro"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Gate rewrites coupon text through a model provider. Rewrite failures are
// logged and never surfaced: the caller always gets usable text back.
type Gate struct {
	cfg    Config
	client httpclient.Client
	log    logger.Logger
}

// NewGate builds a rewrite gate over the given HTTP client.
func NewGate(cfg Config, client httpclient.Client, log logger.Logger) *Gate {
	cfg = cfg.withDefaults()
	if client == nil {
		client = httpclient.NewRestyClient(cfg.Timeout)
	}
	return &Gate{cfg: cfg, client: client, log: logger.Ensure(log)}
}

// Enabled reports whether rewriting is switched on.
func (g *Gate) Enabled() bool {
	return g != nil && g.cfg.Enabled
}

// Rewrite returns the rewritten text, or the original text unchanged when the
// gate is disabled, the input is empty, or the provider call fails.
func (g *Gate) Rewrite(ctx context.Context, text string, field Field, pctx Context) string {
	if !g.Enabled() || strings.TrimSpace(text) == "" {
		return text
	}

	rewritten, err := g.call(ctx, buildPrompt(field, text, pctx), field)
	if err != nil {
		g.log.WarnObj("rewrite failed, keeping original text", "rewrite_error", map[string]any{
			"provider": g.cfg.Provider,
			"field":    string(field),
			"error":    err.Error(),
		})
		return text
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" {
		return text
	}
	return rewritten
}

// TestConnection performs a minimal rewrite round trip to verify credentials.
func (g *Gate) TestConnection(ctx context.Context) error {
	if g == nil {
		return fmt.Errorf("rewrite gate is not initialized")
	}
	_, err := g.call(ctx, "Responda apenas: ok", FieldTitle)
	return err
}

func (g *Gate) call(ctx context.Context, prompt string, field Field) (string, error) {
	switch g.cfg.Provider {
	case ProviderOpenAI:
		return g.callOpenAI(ctx, prompt, field)
	case ProviderGemini:
		return g.callGemini(ctx, prompt, field)
	default:
		return "", fmt.Errorf("unknown rewrite provider %q", g.cfg.Provider)
	}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (g *Gate) callOpenAI(ctx context.Context, prompt string, field Field) (string, error) {
	if g.cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("openai api key is not configured")
	}

	body := openAIRequest{
		Model: g.cfg.OpenAIModel,
		Messages: []openAIMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokensFor(field),
		Temperature: 0.7,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + g.cfg.OpenAIAPIKey,
		"Content-Type":  "application/json",
	}

	resp, err := g.client.Post(ctx, g.cfg.OpenAIBaseURL+"/v1/chat/completions", headers, body)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode())
	}

	var out openAIResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gate) callGemini(ctx context.Context, prompt string, _ Field) (string, error) {
	if g.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("gemini api key is not configured")
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: systemInstruction + "\n\n" + prompt}}},
		},
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.cfg.GeminiBaseURL, g.cfg.GeminiModel, url.QueryEscape(g.cfg.GeminiAPIKey))
	headers := map[string]string{"Content-Type": "application/json"}

	resp, err := g.client.Post(ctx, endpoint, headers, body)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode())
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
