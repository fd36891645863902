package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		match bool
	}{
		{"Housing", "Housing", true},
		{"  shopping ", "Shopping", true},
		{"groceries", "Food & Groceries", true},
		{"Dining", "Dining & Restaurants", true},
		{"transport", "Transportation", true},
		{"Subscriptions", "Bills & Subscriptions", true},
		{"FOOD", "Food & Groceries", true},
		{"Utilities", "Utilities", false},
		{"Gas", "Gas", false},
		{"Rent", "Rent", false},
		{"Restaurant", "Dining & Restaurants", true},
		{"Health", "Healthcare", true},
		{"Tainment", "Tainment", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeCategory(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.match, ok)
		})
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 16)
	assert.Equal(t, OtherCategory, cats[len(cats)-1].Name)

	cats[0].Name = "changed"
	assert.Equal(t, "Housing", Categories()[0].Name)

	n, ok := NecessityFor("Savings & Investments")
	assert.True(t, ok)
	assert.Equal(t, ledger.Savings, n)
	_, ok = NecessityFor("Pets")
	assert.False(t, ok)
}
