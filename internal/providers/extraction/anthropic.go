// Package extraction calls Anthropic models for the suggestion and document
// extraction stages. Everything here is advisory: callers validate whatever
// comes back and degrade to manual review when the backend is unavailable.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/smallbiznis/regalia/internal/config"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
	"go.uber.org/zap"
)

const systemPrompt = "You assist a licensing royalty system. Answer with strict JSON only, no prose, no markdown fences. Never invent values that are not supported by the input."

const defaultModel = "claude-sonnet-4-5-20250929"

// TermsExtractor pulls structured contract terms out of agreement text.
type TermsExtractor interface {
	ExtractTerms(ctx context.Context, documentText string) (*contractdomain.ExtractedTerms, error)
}

type messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

// Provider implements both the mapping Suggester and the TermsExtractor on
// top of the Messages API.
type Provider struct {
	log      *zap.Logger
	messages messager
	model    string
}

func NewProvider(cfg config.Config, log *zap.Logger) *Provider {
	if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
		return nil
	}
	model := strings.TrimSpace(cfg.AnthropicModel)
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(anthropicoption.WithAPIKey(cfg.AnthropicAPIKey))
	return &Provider{
		log:      log.Named("extraction"),
		messages: &client.Messages,
		model:    model,
	}
}

// NewSuggester exposes the provider as the mapping suggestion backend,
// degrading to a no-op when no API key is configured.
func NewSuggester(cfg config.Config, log *zap.Logger) mappingdomain.Suggester {
	if p := NewProvider(cfg, log); p != nil {
		return p
	}
	log.Info("anthropic api key not configured, mapping suggestions disabled")
	return mappingdomain.NopSuggester{}
}

// ErrNotConfigured is returned by the extractor when no API key is set.
// Suggestion stages degrade silently; document extraction cannot.
var ErrNotConfigured = eris.New("extraction: anthropic api key not configured")

type disabledExtractor struct{}

func (disabledExtractor) ExtractTerms(ctx context.Context, documentText string) (*contractdomain.ExtractedTerms, error) {
	return nil, ErrNotConfigured
}

func NewTermsExtractor(cfg config.Config, log *zap.Logger) TermsExtractor {
	if p := NewProvider(cfg, log); p != nil {
		return p
	}
	return disabledExtractor{}
}

func (p *Provider) SuggestColumns(ctx context.Context, headers []string) (map[string]mappingdomain.ColumnSuggestion, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Assign a role to each spreadsheet column header from a licensee sales report.
Allowed roles: net_sales, gross_sales, product_category, period_start, period_end, reported_royalty, units, ignore.
Use "ignore" when unsure.

Headers: %s

Respond with a JSON object mapping each header verbatim to {"role": "<role>", "confidence": <0..1>}.`,
		mustJSON(headers))

	raw, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var decoded map[string]struct {
		Role       string  `json:"role"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, eris.Wrap(err, "extraction: column suggestion response")
	}

	suggestions := make(map[string]mappingdomain.ColumnSuggestion, len(decoded))
	for header, s := range decoded {
		role := mappingdomain.ColumnRole(strings.TrimSpace(s.Role))
		if !mappingdomain.ValidColumnRole(role) {
			continue
		}
		suggestions[mappingdomain.Normalize(header)] = mappingdomain.ColumnSuggestion{
			Role:       role,
			Confidence: clamp01(s.Confidence),
		}
	}
	return suggestions, nil
}

func (p *Provider) SuggestCategories(ctx context.Context, terms, canonical []string) (map[string]string, error) {
	if len(terms) == 0 || len(canonical) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Map each raw product term from a licensee sales report onto one of the contract's categories.
Contract categories: %s
Raw terms: %s

Respond with a JSON object mapping each raw term verbatim to a contract category, or to "" when none fits.`,
		mustJSON(canonical), mustJSON(terms))

	raw, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, eris.Wrap(err, "extraction: category suggestion response")
	}

	suggestions := make(map[string]string, len(decoded))
	for term, category := range decoded {
		if strings.TrimSpace(category) == "" {
			continue
		}
		suggestions[mappingdomain.Normalize(term)] = strings.TrimSpace(category)
	}
	return suggestions, nil
}

// ExtractTerms reads a licensing agreement and returns its terms as loose
// strings. Normalization and validation happen in the contract service, not
// here.
func (p *Provider) ExtractTerms(ctx context.Context, documentText string) (*contractdomain.ExtractedTerms, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, eris.New("extraction: empty document")
	}

	prompt := fmt.Sprintf(`Extract licensing terms from the agreement below.

Respond with a JSON object with these keys (use "" or [] when a value is absent, never guess):
licensee_name, licensee_email, agreement_number, rate, royalty_base, reporting_frequency,
start_date, end_date, minimum_guarantee, guarantee_period, advance, currency, territories, categories.

"rate" is either a number (fraction of sales), or an object like
{"type":"flat","rate":0.05}, {"type":"tiered","tiers":[{"min_cents":0,"max_cents":1000000,"rate":0.05},{"min_cents":1000000,"rate":0.08}]},
or {"type":"category","rates":{"Apparel":0.06}}.

Agreement:
%s`, documentText)

	raw, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var terms contractdomain.ExtractedTerms
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return nil, eris.Wrap(err, "extraction: terms response")
	}
	return &terms, nil
}

func (p *Provider) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", eris.Wrap(err, "extraction: messages api")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return stripFences(sb.String()), nil
}

// stripFences tolerates models that wrap JSON in a markdown code block
// despite the system prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
