// Package handler exposes stored transactions over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/classification"
	"github.com/FACorreiaa/smart-budget/internal/domain/export"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/internal/domain/transactions"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Store is the subset of transactions.Repository the handler uses.
type Store interface {
	List(ctx context.Context, userID uuid.UUID, f transactions.Filter) ([]transactions.Stored, int, error)
	ListByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*transactions.Stored, error)
	SetCategory(ctx context.Context, userID, id uuid.UUID, category string, necessity ledger.NecessityType) (*transactions.Stored, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, c ledger.Classification) error
	UpdateNotes(ctx context.Context, userID, id uuid.UUID, notes string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Searcher runs full-text searches over a user's transactions and keeps the
// index in step with edits.
type Searcher interface {
	Search(userID uuid.UUID, text string, opts transactions.SearchOptions) ([]transactions.SearchHit, error)
	Index(userID uuid.UUID, txs []ledger.ClassifiedTransaction) error
	Delete(id uuid.UUID) error
}

// Classifier classifies a single transaction on demand.
type Classifier interface {
	Classify(ctx context.Context, tx ledger.Transaction) ledger.Classification
}

// TransactionHandler serves the /transactions routes.
type TransactionHandler struct {
	store      Store
	searcher   Searcher
	classifier Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(store Store, searcher Searcher, classifier Classifier, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		store:      store,
		searcher:   searcher,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterRoutes registers the transaction routes with r.
func (h *TransactionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/summary", h.Summary)
	r.GET("/export", h.Export)
	r.GET("/search", h.Search)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.UpdateCategory)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/classify", h.Classify)
	r.PATCH("/:id/notes", h.UpdateNotes)
}

// List returns a page of transactions, newest first. Supported filters are
// from, to (inclusive), category, min_amount, max_amount and q, paged with
// limit and offset.
func (h *TransactionHandler) List(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	stored, total, err := h.store.List(c.Request.Context(), userID, filter)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}

	out := make([]ledger.ClassifiedTransaction, len(stored))
	for i, s := range stored {
		out[i] = s.ClassifiedTransaction
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": out,
		"total":        total,
		"hasMore":      filter.Offset+len(out) < total,
	})
}

func parseFilter(c *gin.Context) (transactions.Filter, error) {
	f := transactions.Filter{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Limit:    defaultPageSize,
	}

	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = time.Parse(time.DateOnly, v); err != nil {
			return f, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q", v)
		}
		f.To = to.AddDate(0, 0, 1)
	}
	for param, dst := range map[string]**decimal.Decimal{"min_amount": &f.MinAmount, "max_amount": &f.MaxAmount} {
		if v := c.Query(param); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, fmt.Errorf("invalid %s %q", param, v)
			}
			*dst = &d
		}
	}
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 1 || f.Limit > maxPageSize {
			return f, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
	}
	return f, nil
}

// Summary reports income, expenses and net cash flow between ?from= and ?to=.
func (h *TransactionHandler) Summary(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	from, to, err := httputil.DateRangeQuery(c, h.now())
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	txs, err := h.store.ListByPeriod(c.Request.Context(), userID, from, to)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, transactions.Summarize(txs))
}

// Get returns one transaction.
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}
	stored, err := h.store.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored.ClassifiedTransaction)
}

// CategoryRequest is the body of PATCH /:id.
type CategoryRequest struct {
	Category      string               `json:"category" binding:"required"`
	NecessityType ledger.NecessityType `json:"necessityType"`
}

// UpdateCategory overrides the category of one transaction. Known category
// names are mapped onto the canonical list and take its usual necessity when
// none is given.
func (h *TransactionHandler) UpdateCategory(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	category, _ := classification.NormalizeCategory(req.Category)
	if category == "" {
		httputil.NewError(c, http.StatusBadRequest, errors.New("category must not be blank"))
		return
	}
	necessity := req.NecessityType
	switch {
	case necessity == "":
		if necessity, ok = classification.NecessityFor(category); !ok {
			necessity = ledger.Want
		}
	case !necessity.Valid():
		httputil.NewError(c, http.StatusBadRequest, fmt.Errorf("invalid necessity type %q", necessity))
		return
	}

	stored, err := h.store.SetCategory(c.Request.Context(), userID, id, category, necessity)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.reindex(stored)
	c.JSON(http.StatusOK, stored.ClassifiedTransaction)
}

// Delete removes one transaction.
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), userID, id); err != nil {
		h.storeError(c, err)
		return
	}
	if err := h.searcher.Delete(id); err != nil {
		h.logger.Warn("failed to remove transaction from search index",
			slog.String("transaction_id", id.String()),
			slog.Any("error", err),
		)
	}
	c.Status(http.StatusNoContent)
}

// Classify runs one transaction through the classifier again and stores the
// answer.
func (h *TransactionHandler) Classify(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	stored, err := h.store.Get(ctx, userID, id)
	if err != nil {
		h.storeError(c, err)
		return
	}

	result := h.classifier.Classify(ctx, stored.Transaction)
	if err := h.store.UpdateClassification(ctx, id, result); err != nil {
		h.storeError(c, err)
		return
	}
	stored.Classification = result
	h.reindex(stored)

	h.logger.Info("transaction reclassified",
		slog.String("transaction_id", id.String()),
		slog.String("category", result.Category),
		slog.Float64("confidence", result.Confidence),
	)
	c.JSON(http.StatusOK, gin.H{"transaction": stored.ClassifiedTransaction, "classification": result})
}

// target reads the user and the :id parameter, writing the error response
// when either is missing or malformed.
func (h *TransactionHandler) target(c *gin.Context) (userID, id uuid.UUID, ok bool) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, errors.New("invalid transaction id"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *TransactionHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, transactions.ErrNotFound) {
		httputil.NewError(c, http.StatusNotFound, err)
		return
	}
	httputil.InternalError(c, h.logger, err)
}

func (h *TransactionHandler) reindex(s *transactions.Stored) {
	if err := h.searcher.Index(s.UserID, []ledger.ClassifiedTransaction{s.ClassifiedTransaction}); err != nil {
		h.logger.Warn("failed to update search index",
			slog.String("transaction_id", s.ID.String()),
			slog.Any("error", err),
		)
	}
}

// Export downloads the transactions between ?from= and ?to= as
// ?format=csv (default) or json.
func (h *TransactionHandler) Export(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}
	now := h.now()
	from, to, err := httputil.DateRangeQuery(c, now)
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	txs, err := h.store.ListByPeriod(c.Request.Context(), userID, from, to)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}

	var body []byte
	switch format {
	case export.FormatJSON:
		body, err = export.JSON(txs, now, c.Query("pretty") == "true")
	default:
		var out string
		out, err = export.CSV(txs)
		body = []byte(out)
	}
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}

	h.logger.Info("transactions exported",
		slog.String("user_id", userID.String()),
		slog.String("format", string(format)),
		slog.Int("count", len(txs)),
	)
	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(now)+`"`)
	c.Data(http.StatusOK, format.ContentType(), body)
}

// Search finds transactions matching ?q=, optionally within ?category=.
func (h *TransactionHandler) Search(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}

	q := c.Query("q")
	if q == "" {
		httputil.NewError(c, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	opts := transactions.SearchOptions{Category: c.Query("category")}
	if v := c.Query("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 {
			httputil.NewError(c, http.StatusBadRequest, errors.New("invalid limit "+strconv.Quote(v)))
			return
		}
	}

	hits, err := h.searcher.Search(userID, q, opts)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "results": hits})
}

// NotesRequest is the body of PATCH /:id/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes replaces the notes on one transaction.
func (h *TransactionHandler) UpdateNotes(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.store.UpdateNotes(c.Request.Context(), userID, id, req.Notes); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
