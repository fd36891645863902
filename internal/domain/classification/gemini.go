package classification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// DefaultGeminiModel is fast and cheap enough for per-transaction calls.
const DefaultGeminiModel = "gemini-2.5-flash"

var errEmptyResponse = errors.New("empty response from model")

// contentGenerator is the part of *genai.Models the oracle uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOracle classifies transactions with a Gemini model.
type GeminiOracle struct {
	models contentGenerator
	model  string
}

// NewGeminiOracle creates a Gemini client for the Gemini API backend.
func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiOracle(client.Models, model), nil
}

func newGeminiOracle(models contentGenerator, model string) *GeminiOracle {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiOracle{models: models, model: model}
}

// Classify asks the model for a single classification.
func (o *GeminiOracle) Classify(ctx context.Context, in Input) (ledger.Classification, error) {
	var out ledger.Classification
	prompt := classificationPrompt + "\n" + describe(in) + "\n\n" + singleResponseFormat
	if err := o.generate(ctx, prompt, &out); err != nil {
		return ledger.Classification{}, fmt.Errorf("gemini classify: %w", err)
	}
	return out, nil
}

// ClassifyBatch asks the model to classify all inputs in one call.
func (o *GeminiOracle) ClassifyBatch(ctx context.Context, in []Input) ([]IndexedClassification, error) {
	var sb strings.Builder
	sb.WriteString(classificationPrompt)
	sb.WriteString("\nClassify each of these transactions:\n")
	for i, tx := range in {
		fmt.Fprintf(&sb, "[%d] %s\n", i, describe(tx))
	}
	sb.WriteString("\n")
	sb.WriteString(batchResponseFormat)

	var out struct {
		Results []IndexedClassification `json:"results"`
	}
	if err := o.generate(ctx, sb.String(), &out); err != nil {
		return nil, fmt.Errorf("gemini classify batch: %w", err)
	}
	return out.Results, nil
}

func (o *GeminiOracle) generate(ctx context.Context, prompt string, v any) error {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	temperature := float32(0)
	resp, err := o.models.GenerateContent(ctx, o.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return errEmptyResponse
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), v); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return nil
}

// describe renders a transaction for the prompt.
func describe(in Input) string {
	parts := []string{
		"Description: " + in.Description,
		"Amount: " + in.Amount.StringFixed(2),
	}
	if in.Merchant != "" {
		parts = append(parts, "Merchant: "+in.Merchant)
	}
	if !in.Date.IsZero() {
		parts = append(parts, "Date: "+in.Date.Format("2006-01-02"))
	}
	return strings.Join(parts, ", ")
}

var classificationPrompt = func() string {
	var sb strings.Builder
	sb.WriteString("You are a financial transaction classifier. Analyze the transaction and classify it.\n\n")
	sb.WriteString("Categories available:\n")
	for _, c := range categories {
		if c.Hint == "" {
			fmt.Fprintf(&sb, "- %s\n", c.Name)
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Hint)
	}
	sb.WriteString("\nNecessity types:\n")
	sb.WriteString("- need: essential for survival or required obligations (housing, utilities, groceries, healthcare, minimum debt payments)\n")
	sb.WriteString("- want: discretionary spending that improves quality of life (entertainment, dining out, shopping, subscriptions)\n")
	sb.WriteString("- savings: money being set aside (savings transfers, investments, debt paydown beyond minimums)\n")
	sb.WriteString("\nNegative amounts are money out, positive amounts are money in.\n")
	return sb.String()
}()

const singleResponseFormat = `Return ONLY a JSON object: {"category": string, "necessityType": "need"|"want"|"savings", "confidence": number between 0 and 1, "reasoning": string}.`

const batchResponseFormat = `Return ONLY a JSON object: {"results": [{"index": number, "category": string, "necessityType": "need"|"want"|"savings", "confidence": number between 0 and 1}]} with one entry per transaction, using the index shown in brackets.`

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
