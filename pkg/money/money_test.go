package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		cents    int64
		code     string
	}{
		{"pounds", "123.45", GBP, 12345, GBP},
		{"rounds half up", "10.005", GBP, 1001, GBP},
		{"negative", "-4.5", EUR, -450, EUR},
		{"lower case code", "1", "usd", 100, USD},
		{"unknown code falls back", "2", "XYZ1", 200, DefaultCurrency},
		{"empty code falls back", "3", "", 300, DefaultCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.cents, m.Amount())
			assert.Equal(t, tt.code, m.Currency())
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		contains string
	}{
		{"GBP", "123.45", GBP, "£"},
		{"EUR", "123.45", EUR, "€"},
		{"USD", "123.45", USD, "$"},
		{"negative", "-50", GBP, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Display(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestStringAndToDecimal(t *testing.T) {
	m := New(12345, GBP)
	assert.Equal(t, "123.45", m.String())
	assert.True(t, m.ToDecimal().Equal(decimal.RequireFromString("123.45")))

	assert.Equal(t, "10.00", New(1000, GBP).String())
}

func TestAdd(t *testing.T) {
	sum, err := New(100, GBP).Add(New(250, GBP))
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Amount())

	_, err = New(100, GBP).Add(New(100, EUR))
	assert.Error(t, err)

	_, err = New(100, GBP).Add(nil)
	assert.Error(t, err)
}

func TestAbs(t *testing.T) {
	m := New(-999, GBP)
	assert.True(t, m.IsNegative())
	assert.Equal(t, int64(999), m.Abs().Amount())
	assert.False(t, m.Abs().IsNegative())
}

func TestAllocate(t *testing.T) {
	parts, err := New(100001, GBP).Allocate(50, 30, 20)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	var total int64
	for _, p := range parts {
		total += p.Amount()
	}
	assert.Equal(t, int64(100001), total)
	assert.Equal(t, int64(50001), parts[0].Amount())
	assert.Equal(t, int64(30000), parts[1].Amount())
	assert.Equal(t, int64(20000), parts[2].Amount())
}

func TestNilSafety(t *testing.T) {
	var m *Money
	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.ToDecimal().IsZero())
	assert.False(t, m.IsNegative())
	_, err := m.Allocate(1, 1)
	assert.Error(t, err)
}

func BenchmarkDisplay(b *testing.B) {
	d := decimal.RequireFromString("1234.56")
	for i := 0; i < b.N; i++ {
		_ = Display(d, GBP)
	}
}
