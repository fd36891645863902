// Package httputil holds gin helpers shared by the HTTP handlers.
package httputil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// UserIDHeader carries the authenticated user's ID, set by the gateway.
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// ErrMissingUser is returned when no valid user ID accompanies a request.
var ErrMissingUser = errors.New("missing or invalid " + UserIDHeader + " header")

// HTTPError is used for error responses that contain a body.
type HTTPError struct {
	Error string `json:"error"`
}

// NewError writes err as a JSON error body and aborts the chain.
func NewError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, HTTPError{Error: err.Error()})
}

// InternalError logs err with the request id and hides it from the client.
func InternalError(c *gin.Context, logger *slog.Logger, err error) {
	id := requestid.Get(c)
	logger.Error("request failed",
		slog.String("request_id", id),
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	NewError(c, http.StatusInternalServerError,
		fmt.Errorf("an error occurred on the server during your request, the request id is '%s'", id))
}

// RequireUser rejects requests without a valid user ID header.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil || id == uuid.Nil {
			NewError(c, http.StatusUnauthorized, ErrMissingUser)
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID returns the user set by RequireUser.
func UserID(c *gin.Context) (uuid.UUID, error) {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, nil
		}
	}
	return uuid.Nil, ErrMissingUser
}

// RateLimit rejects requests beyond the limiter's rate with 429.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			NewError(c, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		c.Next()
	}
}

// MonthQuery reads the year and month query parameters, defaulting to the
// month containing now.
func MonthQuery(c *gin.Context, now time.Time) (year, month int, err error) {
	year, month = now.Year(), int(now.Month())
	if v := c.Query("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := c.Query("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
	}
	return year, month, nil
}

// DateRangeQuery reads the from and to query parameters (YYYY-MM-DD). to is
// inclusive, so the returned end is the start of the following day. Missing
// values default to the last 30 days ending today.
func DateRangeQuery(c *gin.Context, now time.Time) (from, to time.Time, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from, to = today.AddDate(0, 0, -29), today

	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", v)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to date must not be before from date")
	}
	return from, to.AddDate(0, 0, 1), nil
}
