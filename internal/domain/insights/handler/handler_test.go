package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-budget/internal/domain/insights"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

type fakeService struct {
	from, to time.Time
	groupBy  insights.GroupBy
	top      int
	months   int
	err      error
}

func (f *fakeService) SpendingTrends(_ context.Context, _ uuid.UUID, from, to time.Time, g insights.GroupBy) ([]insights.TrendPoint, error) {
	f.from, f.to, f.groupBy = from, to, g
	return []insights.TrendPoint{{Period: "2024-04-01", Amount: decimal.NewFromInt(12)}}, f.err
}

func (f *fakeService) CategoryBreakdown(_ context.Context, _ uuid.UUID, from, to time.Time, top int) ([]insights.CategoryTotal, error) {
	f.from, f.to, f.top = from, to, top
	return []insights.CategoryTotal{{Category: "Groceries", Total: decimal.NewFromInt(80), Percentage: 100}}, f.err
}

func (f *fakeService) MonthlyComparison(_ context.Context, _ uuid.UUID, months int) ([]insights.MonthSummary, error) {
	f.months = months
	if f.err != nil {
		return nil, f.err
	}
	return []insights.MonthSummary{{Month: "2024-04"}}, nil
}

func setup(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInsightsHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	h.RegisterRoutes(r.Group("/v1/analytics", httputil.RequireUser()))
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(httputil.UserIDHeader, uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetSpendingTrends(t *testing.T) {
	svc := &fakeService{}
	w := get(setup(svc), "/v1/analytics/trends?from=2024-04-01&to=2024-04-07&groupBy=week")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, insights.GroupByWeek, svc.groupBy)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), svc.from)
	assert.Equal(t, time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC), svc.to)
	assert.JSONEq(t, `{"groupBy":"week","trends":[{"date":"2024-04-01","amount":"12"}]}`, w.Body.String())
}

func TestGetSpendingTrendsDefaults(t *testing.T) {
	svc := &fakeService{}
	w := get(setup(svc), "/v1/analytics/trends")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, insights.GroupByDay, svc.groupBy)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), svc.from)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), svc.to)
}

func TestGetSpendingTrendsBadRequest(t *testing.T) {
	r := setup(&fakeService{})
	for _, target := range []string{
		"/v1/analytics/trends?groupBy=hour",
		"/v1/analytics/trends?from=01/04/2024",
		"/v1/analytics/trends?from=2024-04-10&to=2024-04-01",
	} {
		w := get(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetCategoryBreakdown(t *testing.T) {
	svc := &fakeService{}
	w := get(setup(svc), "/v1/analytics/categories?top=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.top)
	assert.Contains(t, w.Body.String(), `"category":"Groceries"`)

	w = get(setup(svc), "/v1/analytics/categories?top=many")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMonthlyComparison(t *testing.T) {
	svc := &fakeService{}
	w := get(setup(svc), "/v1/analytics/monthly")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, insights.DefaultMonths, svc.months)

	w = get(setup(svc), "/v1/analytics/monthly?months=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.months)
}

func TestServiceErrors(t *testing.T) {
	w := get(setup(&fakeService{err: insights.ErrInvalidRange}), "/v1/analytics/monthly?months=40")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(setup(&fakeService{err: errors.New("pool closed")}), "/v1/analytics/monthly")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pool closed")
}
