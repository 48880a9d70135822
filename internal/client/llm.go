package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ytsubs/core/internal/adapter"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/pkg/subtitle"
)

// translateCueDTO is the indexed-cue wire shape sent to and expected back
// from the LLM for a chunk translation call (§6.3/§4.8 TRANSLATE: "the LLM
// is given cues with numeric indices and must return the same indices").
type translateCueDTO struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// buildTranslatePrompt renders cues as a JSON array the model must
// translate and echo back index-for-index, in the same order.
func buildTranslatePrompt(cues []subtitle.Cue, sourceLang, targetLang, context_ string) (string, error) {
	dtos := make([]translateCueDTO, len(cues))
	for i, c := range cues {
		dtos[i] = translateCueDTO{Index: c.Index, Text: c.Text()}
	}
	payload, err := json.Marshal(dtos)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following subtitle cues from %s to %s.", sourceLang, targetLang)
	if context_ != "" {
		fmt.Fprintf(&b, " Context: %s.", context_)
	}
	b.WriteString(" Each cue has a numeric index. Respond with a JSON array of the same length, in the same order, with the same indices, translating only the \"text\" field. Do not merge, split, reorder, or drop any cue. Respond with JSON only, no surrounding commentary or code fences.\n\n")
	b.Write(payload)
	return b.String(), nil
}

// parseTranslateResponse decodes the model's JSON reply and re-attaches
// each source cue's timing, since only text is expected to change.
func parseTranslateResponse(raw string, source []subtitle.Cue) ([]subtitle.Cue, error) {
	raw = extractJSON(raw)

	var dtos []translateCueDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, apperrors.ParseErr("parse llm translation response", err)
	}
	if len(dtos) != len(source) {
		return nil, apperrors.ParseErr(fmt.Sprintf("llm returned %d cues, expected %d", len(dtos), len(source)), nil)
	}

	out := make([]subtitle.Cue, len(source))
	for i, d := range dtos {
		out[i] = subtitle.Cue{
			Index: d.Index,
			Start: source[i].Start,
			End:   source[i].End,
			Lines: strings.Split(d.Text, "\n"),
		}
	}
	return out, nil
}

// extractJSON strips code-fence markers and leading/trailing prose a chat
// model sometimes wraps an otherwise-valid JSON payload in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	end := strings.LastIndexAny(s, "]}")
	if start >= 0 && end >= start {
		s = s[start : end+1]
	}
	return s
}

// buildSummarizePrompt renders a transcript summarization request (§6.3).
func buildSummarizePrompt(text, targetLang string, chapters []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following video transcript in %s as a concise markdown document.", targetLang)
	if len(chapters) > 0 {
		fmt.Fprintf(&b, " Chapter hints: %s.", strings.Join(chapters, "; "))
	}
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// classifyLLMErr maps a provider SDK error to the closed error taxonomy by
// inspecting its message text (§4.10): provider SDKs surface rate limits
// and auth failures as plain error strings, not typed errors.
func classifyLLMErr(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	return apperrors.ClassifyExternal(err.Error(), err)
}

// OpenAITranslator adapts OpenAIClient to adapter.LLMAdapter (§6.3), used
// when a profile resolves provider "openai".
type OpenAITranslator struct {
	client *OpenAIClient
}

// NewOpenAITranslator wraps an already-constructed OpenAIClient.
func NewOpenAITranslator(c *OpenAIClient) *OpenAITranslator {
	return &OpenAITranslator{client: c}
}

// TranslateChunk implements adapter.LLMAdapter.
func (t *OpenAITranslator) TranslateChunk(ctx context.Context, cues []subtitle.Cue, sourceLang, targetLang, context_ string) ([]subtitle.Cue, error) {
	prompt, err := buildTranslatePrompt(cues, sourceLang, targetLang, context_)
	if err != nil {
		return nil, apperrors.ParseErr("build translate prompt", err)
	}
	resp, err := t.client.Chat(ctx, prompt)
	if err != nil {
		return nil, classifyLLMErr(err)
	}
	return parseTranslateResponse(resp, cues)
}

// Summarize implements adapter.LLMAdapter.
func (t *OpenAITranslator) Summarize(ctx context.Context, text, targetLang string, chapters []string) (string, error) {
	resp, err := t.client.Chat(ctx, buildSummarizePrompt(text, targetLang, chapters))
	if err != nil {
		return "", classifyLLMErr(err)
	}
	return resp, nil
}

// GeminiTranslator adapts GeminiClient to adapter.LLMAdapter (§6.3), used
// when a profile resolves provider "gemini" or "vertexai".
type GeminiTranslator struct {
	client *GeminiClient
}

// NewGeminiTranslator wraps an already-constructed GeminiClient.
func NewGeminiTranslator(c *GeminiClient) *GeminiTranslator {
	return &GeminiTranslator{client: c}
}

// TranslateChunk implements adapter.LLMAdapter.
func (t *GeminiTranslator) TranslateChunk(ctx context.Context, cues []subtitle.Cue, sourceLang, targetLang, context_ string) ([]subtitle.Cue, error) {
	prompt, err := buildTranslatePrompt(cues, sourceLang, targetLang, context_)
	if err != nil {
		return nil, apperrors.ParseErr("build translate prompt", err)
	}
	resp, err := t.client.Chat(ctx, prompt)
	if err != nil {
		return nil, classifyLLMErr(err)
	}
	return parseTranslateResponse(resp, cues)
}

// Summarize implements adapter.LLMAdapter.
func (t *GeminiTranslator) Summarize(ctx context.Context, text, targetLang string, chapters []string) (string, error) {
	resp, err := t.client.Chat(ctx, buildSummarizePrompt(text, targetLang, chapters))
	if err != nil {
		return "", classifyLLMErr(err)
	}
	return resp, nil
}

// NewLLMAdapter picks the concrete adapter.LLMAdapter for a resolved
// profile's provider, wiring it to the matching already-configured client.
// Returns nil, false for a provider with no configured client (caller
// decides whether that's fatal for the task at hand).
func NewLLMAdapter(provider, model string, openaiClient *OpenAIClient, geminiClient *GeminiClient) (adapter.LLMAdapter, bool) {
	switch strings.ToLower(provider) {
	case "openai":
		if openaiClient == nil {
			return nil, false
		}
		if model != "" {
			openaiClient = openaiClient.WithModel(model)
		}
		return NewOpenAITranslator(openaiClient), true
	case "gemini", "vertexai", "google":
		if geminiClient == nil {
			return nil, false
		}
		if model != "" {
			geminiClient = geminiClient.WithModel(model)
		}
		return NewGeminiTranslator(geminiClient), true
	default:
		return nil, false
	}
}
