package transactions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// searchDocument is the indexed form of a transaction.
type searchDocument struct {
	UserID      string  `json:"user_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category"`
	Necessity   string  `json:"necessity"`
	Amount      float64 `json:"amount"`
	Text        string  `json:"text"`
}

// SearchHit is a transaction matching a search.
type SearchHit struct {
	ID          uuid.UUID       `json:"id"`
	Score       float64         `json:"score"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
}

// SearchOptions narrows a search.
type SearchOptions struct {
	Category string // exact category, optional
	Limit    int
}

// SearchIndex is a full-text index over transaction descriptions, merchants
// and categories.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewSearchIndex creates or opens an index at path. An empty path keeps the
// index in memory.
func NewSearchIndex(path string) (*SearchIndex, error) {
	var (
		index bleve.Index
		err   error
	)

	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("user_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("necessity", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("description", storedOnly)
	docMapping.AddFieldMappingsAt("merchant", storedOnly)
	docMapping.AddFieldMappingsAt("amount", bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Index adds or replaces txs for userID.
func (si *SearchIndex) Index(userID uuid.UUID, txs []ledger.ClassifiedTransaction) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()
	for _, tx := range txs {
		doc := searchDocument{
			UserID:      userID.String(),
			Date:        tx.Date.Format(time.DateOnly),
			Description: tx.Description,
			Merchant:    tx.Merchant,
			Category:    tx.Category,
			Necessity:   string(tx.NecessityType),
			Amount:      tx.Amount.InexactFloat64(),
			Text:        strings.Join([]string{tx.Description, tx.Merchant, tx.Category}, " "),
		}
		if err := batch.Index(tx.ID.String(), doc); err != nil {
			return fmt.Errorf("failed to index transaction %s: %w", tx.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search finds userID's transactions matching text, best match first. Terms
// tolerate one typo.
func (si *SearchIndex) Search(userID uuid.UUID, text string, opts SearchOptions) ([]SearchHit, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	owner := bleve.NewTermQuery(userID.String())
	owner.SetField("user_id")
	clauses := []query.Query{owner}

	if text = strings.TrimSpace(text); text != "" {
		match := bleve.NewMatchQuery(text)
		match.SetField("text")
		match.SetFuzziness(1)
		clauses = append(clauses, match)
	}
	if opts.Category != "" {
		category := bleve.NewTermQuery(opts.Category)
		category.SetField("category")
		clauses = append(clauses, category)
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(clauses...))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		hit := SearchHit{ID: id, Score: h.Score}
		hit.Date, _ = h.Fields["date"].(string)
		hit.Description, _ = h.Fields["description"].(string)
		hit.Merchant, _ = h.Fields["merchant"].(string)
		hit.Category, _ = h.Fields["category"].(string)
		if amount, ok := h.Fields["amount"].(float64); ok {
			hit.Amount = decimal.NewFromFloat(amount).Round(2)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes a transaction from the index.
func (si *SearchIndex) Delete(id uuid.UUID) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	return si.index.Delete(id.String())
}

// DocumentCount returns the number of indexed transactions.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	return si.index.DocCount()
}

// Close closes the index.
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	return si.index.Close()
}
