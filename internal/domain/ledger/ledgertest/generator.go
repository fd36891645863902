// Package ledgertest generates realistic statements and transactions for tests
// and benchmarks.
package ledgertest

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// Generator generates financial test data using gofakeit.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a generator with a random seed.
func New() *Generator {
	return &Generator{faker: gofakeit.New(0)}
}

// NewWithSeed creates a generator with a specific seed for reproducibility.
func NewWithSeed(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

type merchant struct {
	name      string
	category  string
	necessity ledger.NecessityType
}

var merchants = []merchant{
	{"Tesco", "Food & Groceries", ledger.Need},
	{"Sainsbury's", "Food & Groceries", ledger.Need},
	{"TfL", "Transportation", ledger.Need},
	{"British Gas", "Housing", ledger.Need},
	{"Boots", "Healthcare", ledger.Need},
	{"Pret A Manger", "Dining & Restaurants", ledger.Want},
	{"Deliveroo", "Dining & Restaurants", ledger.Want},
	{"Netflix", "Entertainment", ledger.Want},
	{"Amazon", "Shopping", ledger.Want},
	{"PureGym", "Personal Care", ledger.Want},
	{"Vanguard", "Savings & Investments", ledger.Savings},
}

var incomeDescriptions = []string{"Salary", "Freelance invoice", "Refund", "Dividend"}

// Expense generates a random outflow between £1 and £250.
func (g *Generator) Expense() ledger.Transaction {
	m := merchants[g.faker.Number(0, len(merchants)-1)]
	return ledger.Transaction{
		Date:        g.date(),
		Description: "Card payment " + m.name,
		Amount:      g.amount(1, 250).Neg(),
		Merchant:    m.name,
	}
}

// Income generates a random inflow between £1,000 and £5,000.
func (g *Generator) Income() ledger.Transaction {
	return ledger.Transaction{
		Date:        g.date(),
		Description: incomeDescriptions[g.faker.Number(0, len(incomeDescriptions)-1)],
		Amount:      g.amount(1000, 5000),
		Merchant:    g.faker.Company(),
	}
}

// Transactions generates count transactions, roughly one in ten income.
func (g *Generator) Transactions(count int) []ledger.Transaction {
	txs := make([]ledger.Transaction, count)
	for i := range txs {
		if g.faker.Number(1, 10) == 1 {
			txs[i] = g.Income()
		} else {
			txs[i] = g.Expense()
		}
	}
	return txs
}

// Classified generates count expenses classified by their merchant.
func (g *Generator) Classified(count int) []ledger.ClassifiedTransaction {
	out := make([]ledger.ClassifiedTransaction, count)
	for i := range out {
		m := merchants[g.faker.Number(0, len(merchants)-1)]
		tx := ledger.Transaction{
			Date:        g.date(),
			Description: "Card payment " + m.name,
			Amount:      g.amount(1, 250).Neg(),
			Merchant:    m.name,
		}
		out[i] = ledger.Classify(tx, ledger.Classification{
			Category:      m.category,
			NecessityType: m.necessity,
			Confidence:    g.faker.Float64Range(0.6, 1),
		})
	}
	return out
}

// Statement renders count transactions as a Monzo style CSV export.
func (g *Generator) Statement(count int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Date", "Description", "Amount", "Name"})
	for _, tx := range g.Transactions(count) {
		_ = w.Write([]string{
			tx.Date.Format("2006-01-02"),
			tx.Description,
			tx.Amount.StringFixed(2),
			tx.Merchant,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func (g *Generator) date() time.Time {
	d := g.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func (g *Generator) amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(min, max)).Round(2)
}
