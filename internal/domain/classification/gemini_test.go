package classification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

type fakeGenerator struct {
	text   string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func TestGeminiOracle_Classify(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"category\":\"Dining & Restaurants\",\"necessityType\":\"want\",\"confidence\":0.92,\"reasoning\":\"coffee shop\"}\n```"}
	oracle := newGeminiOracle(gen, "")

	got, err := oracle.Classify(context.Background(), Input{
		Description: "PRET A MANGER",
		Amount:      decimal.RequireFromString("-4.50"),
		Merchant:    "Pret",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, ledger.Classification{
		Category: "Dining & Restaurants", NecessityType: ledger.Want, Confidence: 0.92, Reasoning: "coffee shop",
	}, got)
	assert.Equal(t, DefaultGeminiModel, gen.model)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.Contains(t, gen.prompt, "Description: PRET A MANGER, Amount: -4.50, Merchant: Pret, Date: 2024-01-15")
	assert.Contains(t, gen.prompt, "- Savings & Investments")
}

func TestGeminiOracle_ClassifyBatch(t *testing.T) {
	gen := &fakeGenerator{text: `Here you go: {"results":[{"index":1,"category":"Housing","necessityType":"need","confidence":0.8},{"index":0,"category":"Income","necessityType":"savings","confidence":0.99}]}`}
	oracle := newGeminiOracle(gen, "gemini-test")

	got, err := oracle.ClassifyBatch(context.Background(), []Input{
		{Description: "Salary", Amount: decimal.NewFromInt(2500)},
		{Description: "Rent", Amount: decimal.NewFromInt(-950)},
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "Housing", got[0].Category)
	assert.Equal(t, ledger.Savings, got[1].NecessityType)
	assert.Equal(t, "gemini-test", gen.model)
	assert.Contains(t, gen.prompt, "[0] Description: Salary, Amount: 2500.00")
	assert.Contains(t, gen.prompt, "[1] Description: Rent, Amount: -950.00")
}

func TestGeminiOracle_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"transport error", &fakeGenerator{err: errors.New("503")}},
		{"empty response", &fakeGenerator{text: "  "}},
		{"not JSON", &fakeGenerator{text: "I cannot help with that"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newGeminiOracle(tt.gen, "")

			_, err := oracle.Classify(context.Background(), Input{Description: "x"})
			assert.Error(t, err)

			_, err = oracle.ClassifyBatch(context.Background(), []Input{{Description: "x"}})
			assert.Error(t, err)
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{`Sure! {"a":{"b":2}} Hope that helps.`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestGeminiOracle_WithClassifier(t *testing.T) {
	gen := &fakeGenerator{text: `{"results":[{"index":0,"category":"shopping","necessityType":"want","confidence":0.7},{"index":1,"category":"Transport","necessityType":"need","confidence":0.9},{"index":3,"category":"Entertainment","necessityType":"want","confidence":0.9}]}`}
	c := NewClassifier(newGeminiOracle(gen, ""), Options{}, testLogger())

	results := c.ClassifyBatch(context.Background(), transactions(4))

	require.Len(t, results, 4)
	assert.Equal(t, "Shopping", results[0].Category)
	assert.Equal(t, "Transportation", results[1].Category)
	assert.Equal(t, ledger.DefaultClassification(), results[2])
	assert.Equal(t, "Entertainment", results[3].Category)
}
