package classification

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/smart-budget/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// ErrNoMatch is returned by KeywordOracle.Classify when no keyword matches.
var ErrNoMatch = errors.New("no keyword matched")

const (
	keywordConfidence  = 0.9
	merchantConfidence = 0.8
)

// KeywordRule assigns a category when Pattern occurs in a description.
type KeywordRule struct {
	Pattern   string
	Category  string
	Necessity ledger.NecessityType
	Priority  int // higher wins when several rules match
}

// KeywordOracle is an offline oracle. It matches every rule in a single pass
// with Aho-Corasick and falls back to the merchant sanitizer patterns.
// Unmatched transactions are left out of batch answers.
type KeywordOracle struct {
	matcher   *ahocorasick.Matcher
	patterns  []string
	metadata  [][]KeywordRule // rules per pattern, same order as patterns
	merchants *normalizer.MerchantSanitizer
	mu        sync.RWMutex
}

// NewKeywordOracle creates an oracle from the default rules plus extra.
func NewKeywordOracle(extra ...KeywordRule) *KeywordOracle {
	o := &KeywordOracle{merchants: normalizer.NewMerchantSanitizer()}
	o.Build(append(DefaultKeywordRules(), extra...))
	return o
}

// Build replaces the rule set.
func (o *KeywordOracle) Build(rules []KeywordRule) {
	o.mu.Lock()
	defer o.mu.Unlock()

	patternToIndex := make(map[string]int)
	patterns := make([]string, 0, len(rules))
	metadata := make([][]KeywordRule, 0, len(rules))

	for _, rule := range rules {
		p := strings.ToUpper(strings.TrimSpace(rule.Pattern))
		if p == "" {
			continue
		}
		if idx, exists := patternToIndex[p]; exists {
			metadata[idx] = append(metadata[idx], rule)
			continue
		}
		patternToIndex[p] = len(patterns)
		patterns = append(patterns, p)
		metadata = append(metadata, []KeywordRule{rule})
	}

	o.patterns = patterns
	o.metadata = metadata
	o.matcher = nil
	if len(patterns) > 0 {
		o.matcher = ahocorasick.NewStringMatcher(patterns)
	}
}

// PatternCount returns the number of distinct patterns loaded.
func (o *KeywordOracle) PatternCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.patterns)
}

// Classify implements Oracle.
func (o *KeywordOracle) Classify(ctx context.Context, in Input) (ledger.Classification, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Classification{}, err
	}
	if c, ok := o.match(in); ok {
		return c, nil
	}
	return ledger.Classification{}, ErrNoMatch
}

// ClassifyBatch implements Oracle.
func (o *KeywordOracle) ClassifyBatch(ctx context.Context, in []Input) ([]IndexedClassification, error) {
	out := make([]IndexedClassification, 0, len(in))
	for i, tx := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c, ok := o.match(tx); ok {
			out = append(out, IndexedClassification{Index: i, Classification: c})
		}
	}
	return out, nil
}

func (o *KeywordOracle) match(in Input) (ledger.Classification, bool) {
	text := strings.ToUpper(in.Description + " " + in.Merchant)

	if rule, ok := o.bestRule(text); ok {
		return ledger.Classification{
			Category:      rule.Category,
			NecessityType: rule.Necessity,
			Confidence:    keywordConfidence,
			Reasoning:     "matched keyword " + rule.Pattern,
		}, true
	}

	for _, candidate := range []string{in.Merchant, in.Description} {
		if candidate == "" {
			continue
		}
		info := o.merchants.Sanitize(candidate)
		if info.Matched() {
			return ledger.Classification{
				Category:      info.Category,
				NecessityType: info.Necessity,
				Confidence:    merchantConfidence,
				Reasoning:     "recognised merchant " + info.NormalizedName,
			}, true
		}
	}

	if in.Amount.IsPositive() {
		return ledger.Classification{
			Category:      "Income",
			NecessityType: ledger.Savings,
			Confidence:    0.6,
			Reasoning:     "money in",
		}, true
	}
	return ledger.Classification{}, false
}

func (o *KeywordOracle) bestRule(text string) (KeywordRule, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.matcher == nil {
		return KeywordRule{}, false
	}

	var (
		best  KeywordRule
		found bool
	)
	for _, idx := range o.matcher.MatchThreadSafe([]byte(text)) {
		if idx < 0 || idx >= len(o.metadata) {
			continue
		}
		for _, rule := range o.metadata[idx] {
			if !found || rule.Priority > best.Priority ||
				(rule.Priority == best.Priority && len(rule.Pattern) > len(best.Pattern)) {
				best = rule
				found = true
			}
		}
	}
	return best, found
}

// DefaultKeywordRules covers common UK statement wording that merchant
// patterns miss.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Pattern: "SALARY", Category: "Income", Necessity: ledger.Savings, Priority: 10},
		{Pattern: "PAYROLL", Category: "Income", Necessity: ledger.Savings, Priority: 10},
		{Pattern: "DIVIDEND", Category: "Income", Necessity: ledger.Savings, Priority: 10},
		{Pattern: "REFUND", Category: "Income", Necessity: ledger.Savings, Priority: 5},
		{Pattern: "HMRC", Category: "Income", Necessity: ledger.Savings, Priority: 5},
		{Pattern: "COUNCIL TAX", Category: "Housing", Necessity: ledger.Need},
		{Pattern: "INSURANCE", Category: "Bills & Subscriptions", Necessity: ledger.Need},
		{Pattern: "BROADBAND", Category: "Bills & Subscriptions", Necessity: ledger.Need},
		{Pattern: "OVERDRAFT", Category: "Fees & Interest", Necessity: ledger.Need},
		{Pattern: "INTEREST CHARGE", Category: "Fees & Interest", Necessity: ledger.Need},
		{Pattern: "ATM FEE", Category: "Fees & Interest", Necessity: ledger.Need},
		{Pattern: "CASH WITHDRAWAL", Category: "Other", Necessity: ledger.Want},
		{Pattern: "PHARMACY", Category: "Healthcare", Necessity: ledger.Need},
		{Pattern: "DENTAL", Category: "Healthcare", Necessity: ledger.Need},
		{Pattern: "TUITION", Category: "Education", Necessity: ledger.Need},
		{Pattern: "EASYJET", Category: "Travel", Necessity: ledger.Want},
		{Pattern: "RYANAIR", Category: "Travel", Necessity: ledger.Want},
		{Pattern: "BRITISH AIRWAYS", Category: "Travel", Necessity: ledger.Want},
		{Pattern: "AIRBNB", Category: "Travel", Necessity: ledger.Want},
		{Pattern: "HOTEL", Category: "Travel", Necessity: ledger.Want},
		{Pattern: "CHARITY", Category: "Gifts & Donations", Necessity: ledger.Want},
		{Pattern: "JUSTGIVING", Category: "Gifts & Donations", Necessity: ledger.Want},
		{Pattern: "SAVINGS", Category: "Savings & Investments", Necessity: ledger.Savings},
		{Pattern: "ISA TRANSFER", Category: "Savings & Investments", Necessity: ledger.Savings, Priority: 5},
		{Pattern: "PENSION", Category: "Savings & Investments", Necessity: ledger.Savings},
	}
}
