package classification

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// Category is one entry of the canonical category list.
type Category struct {
	Name      string               `json:"name"`
	Necessity ledger.NecessityType `json:"necessity"`
	Hint      string               `json:"hint"`
}

// OtherCategory is the catch-all category.
const OtherCategory = "Other"

// categories is the canonical list offered to oracles, with the usual
// necessity of each.
var categories = []Category{
	{"Housing", ledger.Need, "rent, mortgage, utilities, home repairs"},
	{"Transportation", ledger.Need, "fuel, car payment, public transit, rideshare, parking"},
	{"Food & Groceries", ledger.Need, "supermarket, grocery stores"},
	{"Dining & Restaurants", ledger.Want, "restaurants, fast food, coffee shops, bars"},
	{"Healthcare", ledger.Need, "medical, dental, pharmacy, health insurance"},
	{"Entertainment", ledger.Want, "streaming, movies, games, concerts, sports"},
	{"Shopping", ledger.Want, "clothing, electronics, general retail, Amazon"},
	{"Personal Care", ledger.Want, "gym, salon, spa, wellness"},
	{"Education", ledger.Need, "tuition, books, courses, training"},
	{"Bills & Subscriptions", ledger.Need, "phone, internet, subscriptions"},
	{"Income", ledger.Savings, "salary, freelance, dividends, refunds"},
	{"Savings & Investments", ledger.Savings, "transfers to savings, investments, retirement"},
	{"Fees & Interest", ledger.Need, "bank fees, interest charges, ATM fees"},
	{"Travel", ledger.Want, "flights, hotels, holiday expenses"},
	{"Gifts & Donations", ledger.Want, "charitable giving, gifts"},
	{OtherCategory, ledger.Want, ""},
}

// Categories returns a copy of the canonical category list.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

var categoryNames = func() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}()

// minFuzzyLength keeps very short labels from fuzzily matching long names.
const minFuzzyLength = 4

// NormalizeCategory maps a free-text category onto the canonical list. Exact
// case-insensitive matches win; otherwise the label must be the start of a
// word in a canonical name ("groceries", "transport"). ok is false when
// nothing matched and the label is returned trimmed.
func NormalizeCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, canonical := range categoryNames {
		if strings.EqualFold(name, canonical) {
			return canonical, true
		}
	}
	if len(name) < minFuzzyLength {
		return name, false
	}

	ranks := fuzzy.RankFindNormalizedFold(name, categoryNames)
	ranks = slices.DeleteFunc(ranks, func(r fuzzy.Rank) bool {
		return !startsWord(r.Target, name)
	})
	if len(ranks) == 0 {
		return name, false
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	return ranks[0].Target, true
}

// startsWord reports whether label begins one of the words of canonical.
func startsWord(canonical, label string) bool {
	label = strings.ToLower(label)
	for _, word := range strings.FieldsFunc(strings.ToLower(canonical), func(r rune) bool {
		return r == ' ' || r == '&'
	}) {
		if strings.HasPrefix(word, label) {
			return true
		}
	}
	return false
}

// NecessityFor returns the usual necessity for a canonical category.
func NecessityFor(category string) (ledger.NecessityType, bool) {
	for _, c := range categories {
		if c.Name == category {
			return c.Necessity, true
		}
	}
	return "", false
}
