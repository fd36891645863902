// Package handler exposes the budget service over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/budget"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

// Service is the subset of budget.Service the handler uses.
type Service interface {
	Breakdown(ctx context.Context, userID uuid.UUID, year, month int) (*budget.Breakdown, error)
	UpdateAllocation(ctx context.Context, userID uuid.UUID, year, month int, totalIncome decimal.Decimal, r budget.Ratios) (*budget.Allocation, error)
	CategoryProgress(ctx context.Context, userID uuid.UUID, year, month int) ([]budget.CategoryProgress, error)
	SetCategoryBudget(ctx context.Context, userID uuid.UUID, b budget.CategoryBudget) error
}

// BudgetHandler serves the /budget routes.
type BudgetHandler struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(service Service, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{service: service, logger: logger, now: time.Now}
}

// RegisterRoutes registers the budget routes with r.
func (h *BudgetHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/breakdown", h.GetBreakdown)
	r.PUT("/allocation", h.UpdateAllocation)
	r.GET("/progress", h.GetProgress)
	r.PUT("/categories", h.SetCategoryBudget)
}

// AllocationRequest is the body of PUT /allocation. Omitted percentages
// default to 50/30/20.
type AllocationRequest struct {
	Year           int             `json:"year" binding:"required"`
	Month          int             `json:"month" binding:"required"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	NeedsPercent   *float64        `json:"needsPercent"`
	WantsPercent   *float64        `json:"wantsPercent"`
	SavingsPercent *float64        `json:"savingsPercent"`
}

func (r AllocationRequest) ratios() budget.Ratios {
	out := budget.DefaultRatios
	if r.NeedsPercent != nil {
		out.NeedsPercent = *r.NeedsPercent
	}
	if r.WantsPercent != nil {
		out.WantsPercent = *r.WantsPercent
	}
	if r.SavingsPercent != nil {
		out.SavingsPercent = *r.SavingsPercent
	}
	return out
}

// GetBreakdown returns the 50/30/20 breakdown for ?year=&month=.
func (h *BudgetHandler) GetBreakdown(c *gin.Context) {
	userID, year, month, ok := h.monthRequest(c)
	if !ok {
		return
	}

	b, err := h.service.Breakdown(c.Request.Context(), userID, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateAllocation saves custom ratios for a month.
func (h *BudgetHandler) UpdateAllocation(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}

	var req AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	a, err := h.service.UpdateAllocation(c.Request.Context(), userID, req.Year, req.Month, req.TotalIncome, req.ratios())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetProgress returns category budget progress for ?year=&month=.
func (h *BudgetHandler) GetProgress(c *gin.Context) {
	userID, year, month, ok := h.monthRequest(c)
	if !ok {
		return
	}

	progress, err := h.service.CategoryProgress(c.Request.Context(), userID, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": progress})
}

// SetCategoryBudget creates or replaces a category limit.
func (h *BudgetHandler) SetCategoryBudget(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}

	var req budget.CategoryBudget
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.SetCategoryBudget(c.Request.Context(), userID, req); err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BudgetHandler) monthRequest(c *gin.Context) (uuid.UUID, int, int, bool) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return uuid.Nil, 0, 0, false
	}
	year, month, err := httputil.MonthQuery(c, h.now())
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return uuid.Nil, 0, 0, false
	}
	return userID, year, month, true
}

func (h *BudgetHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, budget.ErrInvalidPeriod), errors.Is(err, budget.ErrInvalidRatios):
		httputil.NewError(c, http.StatusBadRequest, err)
	default:
		httputil.InternalError(c, h.logger, err)
	}
}
