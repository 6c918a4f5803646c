package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/khianthai/khian/internal/llm"
)

// Method tags recorded on writing attempts.
const (
	MethodGemini     = "Gemini"
	MethodOpenAI     = "OpenAI"
	MethodClaude     = "Claude"
	MethodOpenRouter = "OpenRouter"
	MethodMock       = "Mock"
)

// MethodFor maps a provider name from llm.Config to its method tag.
func MethodFor(provider string) string {
	switch provider {
	case "gemini":
		return MethodGemini
	case "openai":
		return MethodOpenAI
	case "anthropic":
		return MethodClaude
	case "openrouter":
		return MethodOpenRouter
	default:
		return MethodMock
	}
}

// RawVerdict is the unsanitized answer from the vision model.
type RawVerdict struct {
	DetectedText string
	IsCorrect    bool
	Confidence   int // 0-100
	Explanation  string

	// Recovered is set when the model output was malformed and had to be
	// repaired before it could be read.
	Recovered bool
}

// Verifier checks one canvas image against a target label.
type Verifier interface {
	Detect(ctx context.Context, img llm.Image, target string) (*RawVerdict, error)

	// Method returns the provenance tag stored with each attempt.
	Method() string
}

// Config holds configuration for the LLM verifier.
type Config struct {
	Provider    string // llm provider name, used for the method tag
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    "gemini",
		Timeout:     60 * time.Second,
		MaxTokens:   2048,
		Temperature: 0.1,
	}
}

// LLMVerifier implements Verifier using an image-capable llm.Provider.
type LLMVerifier struct {
	provider llm.Provider
	cfg      Config
}

// NewLLMVerifier creates a verifier backed by provider.
func NewLLMVerifier(provider llm.Provider, cfg Config) *LLMVerifier {
	return &LLMVerifier{provider: provider, cfg: cfg}
}

// verdictOutput is the raw model response.
type verdictOutput struct {
	Detected    string `json:"detected"`
	IsCorrect   bool   `json:"isCorrect"`
	Confidence  int    `json:"confidence"`
	Explanation string `json:"explanation"`
}

// Detect sends the image to the model and returns its verdict. Failures
// are returned as *DetectionError.
func (v *LLMVerifier) Detect(ctx context.Context, img llm.Image, target string) (*RawVerdict, error) {
	ctx = llm.WithPurpose(ctx, "handwriting")
	if v.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	userMsg, err := buildUserMessage(target)
	if err != nil {
		return nil, fmt.Errorf("build handwriting prompt: %w", err)
	}

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg, Images: []llm.Image{img}},
		},
		Schema:      VerdictSchema,
		MaxTokens:   v.cfg.MaxTokens,
		Temperature: v.cfg.Temperature,
	}

	var out verdictOutput
	recovered := false

	resp, err := v.provider.Generate(ctx, req)
	if err != nil {
		raw := recoverable(err)
		if raw == nil {
			return nil, Classify(err)
		}
		repaired, rerr := repair(raw)
		if rerr != nil {
			return nil, Classify(fmt.Errorf("%w (repair: %v)", err, rerr))
		}
		out = *repaired
		recovered = true
	} else if jerr := json.Unmarshal(resp.Content, &out); jerr != nil {
		return nil, Classify(&llm.ErrInvalidResponse{Content: resp.Content, Err: jerr})
	}

	return &RawVerdict{
		DetectedText: out.Detected,
		IsCorrect:    out.IsCorrect,
		Confidence:   clampConfidence(out.Confidence),
		Explanation:  out.Explanation,
		Recovered:    recovered,
	}, nil
}

// Method returns the provenance tag for the configured provider.
func (v *LLMVerifier) Method() string {
	return MethodFor(v.cfg.Provider)
}

// recoverable returns the raw model text carried by err, if any.
func recoverable(err error) json.RawMessage {
	var inv *llm.ErrInvalidResponse
	if errors.As(err, &inv) && len(inv.Content) > 0 {
		return inv.Content
	}
	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &maxTok) && len(maxTok.Content) > 0 {
		return maxTok.Content
	}
	return nil
}

func clampConfidence(c int) int {
	return min(100, max(0, c))
}
