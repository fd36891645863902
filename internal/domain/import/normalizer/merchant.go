// Package normalizer turns raw statement strings into typed values: dates,
// amounts and cleaned merchant names.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// MerchantInfo contains normalized merchant information
type MerchantInfo struct {
	OriginalName   string               `json:"original_name"`
	NormalizedName string               `json:"normalized_name"`
	Category       string               `json:"category,omitempty"`
	Necessity      ledger.NecessityType `json:"necessity,omitempty"`
}

// Matched reports whether the merchant was recognised.
func (m MerchantInfo) Matched() bool {
	return m.Category != ""
}

// MerchantPattern defines a pattern for matching and normalizing merchants
type MerchantPattern struct {
	Pattern   *regexp.Regexp
	Name      string
	Category  string
	Necessity ledger.NecessityType
}

// MerchantSanitizer normalizes merchant names and detects categories
type MerchantSanitizer struct {
	patterns []MerchantPattern
}

// NewMerchantSanitizer creates a new sanitizer with common UK merchant patterns
func NewMerchantSanitizer() *MerchantSanitizer {
	return &MerchantSanitizer{
		patterns: defaultMerchantPatterns(),
	}
}

// Sanitize normalizes a merchant name and detects its category
func (s *MerchantSanitizer) Sanitize(rawMerchant string) MerchantInfo {
	cleaned := cleanMerchantName(rawMerchant)
	result := MerchantInfo{
		OriginalName:   rawMerchant,
		NormalizedName: cleaned,
	}

	upper := strings.ToUpper(cleaned)
	for _, pattern := range s.patterns {
		if pattern.Pattern.MatchString(upper) {
			result.NormalizedName = pattern.Name
			result.Category = pattern.Category
			result.Necessity = pattern.Necessity
			return result
		}
	}

	result.NormalizedName = titleCase(cleaned)
	return result
}

// AddPattern adds a custom merchant pattern
func (s *MerchantSanitizer) AddPattern(pattern, name, category string, necessity ledger.NecessityType) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, MerchantPattern{
		Pattern:   re,
		Name:      name,
		Category:  category,
		Necessity: necessity,
	})
	return nil
}

var (
	merchantPrefixes = []string{
		"CARD PAYMENT TO ", "CARD PURCHASE ", "DIRECT DEBIT ", "STANDING ORDER ",
		"FASTER PAYMENT ", "BILL PAYMENT ", "CONTACTLESS ",
		"VISA ", "MASTERCARD ", "MAESTRO ",
		"PURCHASE ", "PAYMENT ", "POS ", "DD ", "SO ",
	}
	refSuffix   = regexp.MustCompile(`\s+\d{4,}$`)
	dateSuffix  = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}(/\d{2,4})?$`)
	onDateTail  = regexp.MustCompile(`(?i)\s+ON\s+\d{1,2}\s+[A-Z]{3}$`)
	multiSpaces = regexp.MustCompile(`\s+`)
)

// cleanMerchantName removes common noise from merchant names
func cleanMerchantName(raw string) string {
	result := strings.TrimSpace(raw)

	upper := strings.ToUpper(result)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	result = onDateTail.ReplaceAllString(result, "")
	result = refSuffix.ReplaceAllString(result, "")
	result = dateSuffix.ReplaceAllString(result, "")
	result = multiSpaces.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

// titleCase converts a string to title case
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// defaultMerchantPatterns returns common UK merchant patterns. More specific
// patterns come first (UBER EATS before UBER).
func defaultMerchantPatterns() []MerchantPattern {
	return []MerchantPattern{
		// Supermarkets
		{regexp.MustCompile(`(?i)TESCO`), "Tesco", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)SAINSBURY`), "Sainsbury's", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)ASDA`), "Asda", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)MORRISONS`), "Morrisons", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)WAITROSE`), "Waitrose", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)\bLIDL\b`), "Lidl", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)\bALDI\b`), "Aldi", "Food & Groceries", ledger.Need},
		{regexp.MustCompile(`(?i)\bCO-?OP\b`), "Co-op", "Food & Groceries", ledger.Need},

		// Coffee, restaurants & delivery
		{regexp.MustCompile(`(?i)STARBUCKS`), "Starbucks", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)PRET\s*A\s*MANGER|\bPRET\b`), "Pret A Manger", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)COSTA`), "Costa Coffee", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)GREGGS`), "Greggs", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)MC\s*DONALDS|MCDONALD`), "McDonald's", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)NANDO`), "Nando's", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)DELIVEROO`), "Deliveroo", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)UBER\s*EATS`), "Uber Eats", "Dining & Restaurants", ledger.Want},
		{regexp.MustCompile(`(?i)JUST\s*EAT`), "Just Eat", "Dining & Restaurants", ledger.Want},

		// Transport
		{regexp.MustCompile(`(?i)\bTFL\b|TRANSPORT FOR LONDON`), "TfL", "Transportation", ledger.Need},
		{regexp.MustCompile(`(?i)TRAINLINE`), "Trainline", "Transportation", ledger.Need},
		{regexp.MustCompile(`(?i)\bUBER\b`), "Uber", "Transportation", ledger.Want},
		{regexp.MustCompile(`(?i)\bSHELL\b|\bBP\b|ESSO`), "Fuel", "Transportation", ledger.Need},

		// Housing & bills
		{regexp.MustCompile(`(?i)BRITISH\s*GAS|OCTOPUS\s*ENERGY|\bEDF\b|\bE\.ON\b|\bOVO\b`), "Energy", "Housing", ledger.Need},
		{regexp.MustCompile(`(?i)THAMES\s*WATER|WATER\s*PLC`), "Water", "Housing", ledger.Need},
		{regexp.MustCompile(`(?i)COUNCIL\s*TAX`), "Council Tax", "Housing", ledger.Need},
		{regexp.MustCompile(`(?i)\bRENT\b|MORTGAGE`), "Rent", "Housing", ledger.Need},
		{regexp.MustCompile(`(?i)VODAFONE|\bEE\b|\bO2\b|\bTHREE\b|BT\s*GROUP|VIRGIN\s*MEDIA|SKY\s*DIGITAL`), "Telecom", "Bills & Subscriptions", ledger.Need},

		// Shopping
		{regexp.MustCompile(`(?i)AMAZON|AMZN`), "Amazon", "Shopping", ledger.Want},
		{regexp.MustCompile(`(?i)ARGOS`), "Argos", "Shopping", ledger.Want},
		{regexp.MustCompile(`(?i)PRIMARK`), "Primark", "Shopping", ledger.Want},
		{regexp.MustCompile(`(?i)\bASOS\b`), "ASOS", "Shopping", ledger.Want},
		{regexp.MustCompile(`(?i)IKEA`), "IKEA", "Shopping", ledger.Want},

		// Entertainment
		{regexp.MustCompile(`(?i)NETFLIX`), "Netflix", "Entertainment", ledger.Want},
		{regexp.MustCompile(`(?i)SPOTIFY`), "Spotify", "Entertainment", ledger.Want},
		{regexp.MustCompile(`(?i)DISNEY\s*\+|DISNEYPLUS`), "Disney+", "Entertainment", ledger.Want},
		{regexp.MustCompile(`(?i)STEAM|PLAYSTATION|XBOX`), "Gaming", "Entertainment", ledger.Want},

		// Health & personal care
		{regexp.MustCompile(`(?i)BOOTS`), "Boots", "Healthcare", ledger.Need},
		{regexp.MustCompile(`(?i)PURE\s*GYM|THE\s*GYM|DAVID\s*LLOYD`), "Gym", "Personal Care", ledger.Want},

		// Savings
		{regexp.MustCompile(`(?i)VANGUARD|TRADING\s*212|NUTMEG|MONEYBOX|\bISA\b`), "Investments", "Savings & Investments", ledger.Savings},
		{regexp.MustCompile(`(?i)SAVINGS\s*POT|TO\s*SAVINGS`), "Savings Transfer", "Savings & Investments", ledger.Savings},
	}
}
