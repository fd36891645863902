package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-budget/internal/domain/classification"
	"github.com/FACorreiaa/smart-budget/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/smart-budget/internal/domain/import/service"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

const classifyChunk = 50

// statement is a parsed and classified statement file.
type statement struct {
	outcome parser.Outcome
	txs     []ledger.ClassifiedTransaction
}

// loadStatement parses path and classifies every accepted row. Rejected rows
// are kept in the outcome; an empty or unrecognised file is an error.
func (o *globalOptions) loadStatement(cmd *cobra.Command, path string) (*statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}

	outcome, err := importservice.Parse(importservice.ImportInput{FileName: filepath.Base(path), Data: data})
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := outcome.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	classifier, err := o.classifier(cmd)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	txs := make([]ledger.ClassifiedTransaction, 0, len(outcome.Records))
	for chunk := range slices.Chunk(outcome.Records, classifyChunk) {
		for i, c := range classifier.ClassifyBatch(ctx, chunk) {
			txs = append(txs, ledger.Classify(chunk[i], c))
		}
	}
	return &statement{outcome: outcome, txs: txs}, nil
}

func (o *globalOptions) classifier(cmd *cobra.Command) (*classification.Classifier, error) {
	logger := o.logger(cmd)
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	var oracle classification.Oracle = classification.NewKeywordOracle()
	if cfg.Gemini.Enabled() && !o.offline {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if oracle, err = classification.NewGeminiOracle(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model); err != nil {
			return nil, fmt.Errorf("creating gemini oracle: %w", err)
		}
	}

	opts := classification.Options{CallTimeout: cfg.Classifier.CallTimeout}
	if cps := cfg.Classifier.CallsPerSecond; cps > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cps), cps)
	}
	return classification.NewClassifier(oracle, opts, logger), nil
}
