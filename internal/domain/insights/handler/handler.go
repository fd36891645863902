// Package handler exposes spending analytics over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-budget/internal/domain/insights"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

// Service is the subset of insights.Service the handler uses.
type Service interface {
	SpendingTrends(ctx context.Context, userID uuid.UUID, from, to time.Time, g insights.GroupBy) ([]insights.TrendPoint, error)
	CategoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time, top int) ([]insights.CategoryTotal, error)
	MonthlyComparison(ctx context.Context, userID uuid.UUID, months int) ([]insights.MonthSummary, error)
}

// InsightsHandler serves the /analytics routes.
type InsightsHandler struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewInsightsHandler constructs a new handler.
func NewInsightsHandler(service Service, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{service: service, logger: logger, now: time.Now}
}

// RegisterRoutes registers the analytics routes with r.
func (h *InsightsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/trends", h.GetSpendingTrends)
	r.GET("/categories", h.GetCategoryBreakdown)
	r.GET("/monthly", h.GetMonthlyComparison)
}

// GetSpendingTrends returns spending per ?groupBy= period between ?from= and ?to=.
func (h *InsightsHandler) GetSpendingTrends(c *gin.Context) {
	userID, from, to, ok := h.rangeRequest(c)
	if !ok {
		return
	}
	g, err := insights.ParseGroupBy(c.Query("groupBy"))
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	points, err := h.service.SpendingTrends(c.Request.Context(), userID, from, to, g)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupBy": g, "trends": points})
}

// GetCategoryBreakdown returns spending per category. ?top=N folds the
// remainder into "Other".
func (h *InsightsHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, from, to, ok := h.rangeRequest(c)
	if !ok {
		return
	}
	top, err := intQuery(c, "top", 0)
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	totals, err := h.service.CategoryBreakdown(c.Request.Context(), userID, from, to, top)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": totals})
}

// GetMonthlyComparison returns income against expenses for the last ?months=.
func (h *InsightsHandler) GetMonthlyComparison(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	months, err := intQuery(c, "months", insights.DefaultMonths)
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}

	summaries, err := h.service.MonthlyComparison(c.Request.Context(), userID, months)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": summaries})
}

func (h *InsightsHandler) rangeRequest(c *gin.Context) (uuid.UUID, time.Time, time.Time, bool) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return uuid.Nil, time.Time{}, time.Time{}, false
	}
	from, to, err := httputil.DateRangeQuery(c, h.now())
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, err)
		return uuid.Nil, time.Time{}, time.Time{}, false
	}
	return userID, from, to, true
}

func (h *InsightsHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, insights.ErrInvalidRange) {
		httputil.NewError(c, http.StatusBadRequest, err)
		return
	}
	httputil.InternalError(c, h.logger, err)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + key + " " + strconv.Quote(v))
	}
	return n, nil
}
