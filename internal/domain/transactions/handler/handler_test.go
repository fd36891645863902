package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-budget/internal/domain/export"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/internal/domain/transactions"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

type fakeStore struct {
	txs        []ledger.ClassifiedTransaction
	from, to   time.Time
	filter     transactions.Filter
	total      int
	notes      string
	category   string
	necessity  ledger.NecessityType
	classified *ledger.Classification
	deleted    uuid.UUID
	err        error
}

func (f *fakeStore) stored(id uuid.UUID) (*transactions.Stored, error) {
	for _, tx := range f.txs {
		if tx.ID == id {
			return &transactions.Stored{ClassifiedTransaction: tx, UserID: userID}, nil
		}
	}
	return nil, transactions.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, _ uuid.UUID, filter transactions.Filter) ([]transactions.Stored, int, error) {
	f.filter = filter
	out := make([]transactions.Stored, len(f.txs))
	for i, tx := range f.txs {
		out[i] = transactions.Stored{ClassifiedTransaction: tx, UserID: userID}
	}
	return out, f.total, f.err
}

func (f *fakeStore) ListByPeriod(_ context.Context, _ uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error) {
	f.from, f.to = from, to
	return f.txs, f.err
}

func (f *fakeStore) Get(_ context.Context, _, id uuid.UUID) (*transactions.Stored, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stored(id)
}

func (f *fakeStore) SetCategory(_ context.Context, _, id uuid.UUID, category string, necessity ledger.NecessityType) (*transactions.Stored, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.category, f.necessity = category, necessity
	s, err := f.stored(id)
	if err != nil {
		return nil, err
	}
	s.Classification = ledger.Classification{Category: category, NecessityType: necessity, Confidence: 1}
	return s, nil
}

func (f *fakeStore) UpdateClassification(_ context.Context, _ uuid.UUID, c ledger.Classification) error {
	f.classified = &c
	return nil
}

func (f *fakeStore) UpdateNotes(_ context.Context, _, _ uuid.UUID, notes string) error {
	f.notes = notes
	return f.err
}

func (f *fakeStore) Delete(_ context.Context, _, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	if _, err := f.stored(id); err != nil {
		return err
	}
	f.deleted = id
	return nil
}

// travelClassifier always answers Travel.
type travelClassifier struct{}

func (travelClassifier) Classify(context.Context, ledger.Transaction) ledger.Classification {
	return ledger.Classification{Category: "Travel", NecessityType: ledger.Want, Confidence: 0.97}
}

var (
	userID  = uuid.MustParse("7b0c7e0e-6f4c-4a39-8d0b-6f1e2b9d3c11")
	pretID  = uuid.MustParse("0d4c1f55-2b8e-4f1a-9d43-6a0e5b3c2f01")
	tescoID = uuid.MustParse("9a7e2c10-5d3b-4e8f-a1c6-2f4b8d0e6c02")
)

func sample() []ledger.ClassifiedTransaction {
	txs := []ledger.ClassifiedTransaction{
		ledger.Classify(ledger.Transaction{
			Date:        time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Description: "PRET A MANGER, LONDON",
			Amount:      decimal.RequireFromString("-6.45"),
			Merchant:    "Pret A Manger",
		}, ledger.Classification{Category: "Dining & Restaurants", NecessityType: ledger.Want, Confidence: 0.95}),
		ledger.Classify(ledger.Transaction{
			Date:        time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC),
			Description: "TESCO STORES 2231",
			Amount:      decimal.RequireFromString("-54.10"),
			Merchant:    "Tesco",
		}, ledger.Classification{Category: "Food & Groceries", NecessityType: ledger.Need, Confidence: 0.9}),
	}
	txs[0].ID, txs[1].ID = pretID, tescoID
	return txs
}

func setup(t *testing.T, store Store) *gin.Engine {
	t.Helper()
	r, _ := setupWithIndex(t, store)
	return r
}

func setupWithIndex(t *testing.T, store Store) (*gin.Engine, *transactions.SearchIndex) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	index, err := transactions.NewSearchIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Index(userID, sample()))

	h := NewTransactionHandler(store, index, travelClassifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC) }

	r := gin.New()
	h.RegisterRoutes(r.Group("/v1/transactions", httputil.RequireUser()))
	return r, index
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(httputil.UserIDHeader, userID.String())
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExportCSV(t *testing.T) {
	store := &fakeStore{txs: sample()}
	w := do(setup(t, store), http.MethodGet, "/v1/transactions/export?from=2024-04-01&to=2024-04-30", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "smart-budget-export-2024-04-30.csv")
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), store.to)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "Date,Description,Amount,Merchant,Category,Type,Notes\n"))
	assert.Contains(t, body, `2024-04-02,"PRET A MANGER, LONDON",-6.45,Pret A Manger,Dining & Restaurants,want,`)
}

func TestExportJSON(t *testing.T) {
	w := do(setup(t, &fakeStore{txs: sample()}), http.MethodGet, "/v1/transactions/export?format=json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc export.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, "Food & Groceries", doc.Transactions[1].Category)
}

func TestExportErrors(t *testing.T) {
	w := do(setup(t, &fakeStore{}), http.MethodGet, "/v1/transactions/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(setup(t, &fakeStore{err: errors.New("timeout")}), http.MethodGet, "/v1/transactions/export", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearch(t *testing.T) {
	r := setup(t, &fakeStore{})

	w := do(r, http.MethodGet, "/v1/transactions/search?q=tesco", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Query   string                   `json:"query"`
		Results []transactions.SearchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Tesco", body.Results[0].Merchant)

	w = do(r, http.MethodGet, "/v1/transactions/search?q=pret&category=Food+%26+Groceries", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestSearchBadRequest(t *testing.T) {
	r := setup(t, &fakeStore{})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/transactions/search", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/transactions/search?q=x&limit=-2", "").Code)
}

func TestUpdateNotes(t *testing.T) {
	store := &fakeStore{}
	r := setup(t, store)

	w := do(r, http.MethodPatch, "/v1/transactions/"+uuid.NewString()+"/notes", `{"notes":"split with Sam"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "split with Sam", store.notes)

	w = do(r, http.MethodPatch, "/v1/transactions/not-a-uuid/notes", `{"notes":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	store.err = transactions.ErrNotFound
	w = do(r, http.MethodPatch, "/v1/transactions/"+uuid.NewString()+"/notes", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList(t *testing.T) {
	store := &fakeStore{txs: sample(), total: 12}
	r := setup(t, store)

	w := do(r, http.MethodGet, "/v1/transactions?from=2024-04-01&to=2024-04-30&category=Travel&min_amount=-50.5&q=rail&limit=2&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), store.filter.From)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), store.filter.To)
	assert.Equal(t, "Travel", store.filter.Category)
	assert.Equal(t, "rail", store.filter.Search)
	require.NotNil(t, store.filter.MinAmount)
	assert.Equal(t, "-50.5", store.filter.MinAmount.String())
	assert.Nil(t, store.filter.MaxAmount)
	assert.Equal(t, 2, store.filter.Limit)
	assert.Equal(t, 10, store.filter.Offset)

	var body struct {
		Transactions []ledger.ClassifiedTransaction `json:"transactions"`
		Total        int                            `json:"total"`
		HasMore      bool                           `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Total)
	assert.False(t, body.HasMore)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, pretID, body.Transactions[0].ID)
	assert.Equal(t, "Pret A Manger", body.Transactions[0].Merchant)
}

func TestListDefaultsAndErrors(t *testing.T) {
	store := &fakeStore{txs: sample(), total: 3}
	r := setup(t, store)

	w := do(r, http.MethodGet, "/v1/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, store.filter.Limit)
	assert.True(t, store.filter.From.IsZero())
	assert.Contains(t, w.Body.String(), `"hasMore":true`)

	for _, q := range []string{"limit=0", "limit=101", "offset=-1", "max_amount=lots", "from=April"} {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/transactions?"+q, "").Code, q)
	}
}

func TestSummary(t *testing.T) {
	txs := append(sample(), ledger.Classify(ledger.Transaction{
		Date:        time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC),
		Description: "SALARY",
		Amount:      decimal.RequireFromString("2000"),
	}, ledger.Classification{Category: "Income", NecessityType: ledger.Savings, Confidence: 1}))
	w := do(setup(t, &fakeStore{txs: txs}), http.MethodGet, "/v1/transactions/summary?from=2024-04-01&to=2024-04-30", "")
	require.Equal(t, http.StatusOK, w.Code)

	var s transactions.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.True(t, decimal.RequireFromString("2000").Equal(s.TotalIncome))
	assert.True(t, decimal.RequireFromString("60.55").Equal(s.TotalExpenses))
	assert.True(t, decimal.RequireFromString("1939.45").Equal(s.NetCashFlow))
	assert.Equal(t, 3, s.TransactionCount)
}

func TestGet(t *testing.T) {
	r := setup(t, &fakeStore{txs: sample()})

	w := do(r, http.MethodGet, "/v1/transactions/"+tescoID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"Food & Groceries"`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/transactions/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/transactions/nope", "").Code)
}

func TestUpdateCategory(t *testing.T) {
	store := &fakeStore{txs: sample()}
	r, index := setupWithIndex(t, store)

	w := do(r, http.MethodPatch, "/v1/transactions/"+pretID.String(), `{"category":"travel"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Travel", store.category)
	assert.Equal(t, ledger.Want, store.necessity)

	hits, err := index.Search(userID, "pret", transactions.SearchOptions{Category: "Travel"})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	w = do(r, http.MethodPatch, "/v1/transactions/"+pretID.String(), `{"category":"Rent","necessityType":"need"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rent", store.category)
	assert.Equal(t, ledger.Need, store.necessity)

	w = do(r, http.MethodPatch, "/v1/transactions/"+pretID.String(), `{"category":"Rent","necessityType":"luxury"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPatch, "/v1/transactions/"+pretID.String(), `{"category":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPatch, "/v1/transactions/"+uuid.NewString(), `{"category":"Travel"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	store := &fakeStore{txs: sample()}
	r, index := setupWithIndex(t, store)

	w := do(r, http.MethodDelete, "/v1/transactions/"+tescoID.String(), "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, tescoID, store.deleted)

	hits, err := index.Search(userID, "tesco", transactions.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/v1/transactions/"+uuid.NewString(), "").Code)
}

func TestClassify(t *testing.T) {
	store := &fakeStore{txs: sample()}
	r := setup(t, store)

	w := do(r, http.MethodPost, "/v1/transactions/"+pretID.String()+"/classify", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, store.classified)
	assert.Equal(t, "Travel", store.classified.Category)

	var body struct {
		Transaction    ledger.ClassifiedTransaction `json:"transaction"`
		Classification ledger.Classification        `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, pretID, body.Transaction.ID)
	assert.Equal(t, "Travel", body.Transaction.Category)
	assert.Equal(t, 0.97, body.Classification.Confidence)

	w = do(r, http.MethodPost, "/v1/transactions/"+uuid.NewString()+"/classify", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
