package main

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-budget/pkg/httputil"
	"github.com/FACorreiaa/smart-budget/pkg/metrics"
)

// RouteRegistrar is implemented by every domain handler.
type RouteRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup)
}

// RouterConfig describes the HTTP surface.
type RouterConfig struct {
	Routes         map[string]RouteRegistrar // keyed by prefix under /v1
	Health         func(ctx context.Context) error
	CORSOrigins    []string
	RatePerSecond  int
	RateBurst      int
	MetricsEnabled bool
	Logger         *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.ForwardedByClientIP = false
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(requestLogger(cfg.Logger))

	if cfg.MetricsEnabled {
		r.Use(metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				cfg.Logger.Warn("health check failed", slog.Any("error", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", httputil.RequireUser())
	if cfg.RatePerSecond > 0 {
		v1.Use(httputil.RateLimit(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.RateBurst, 1))))
	}

	prefixes := make([]string, 0, len(cfg.Routes))
	for prefix := range cfg.Routes {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		cfg.Routes[prefix].RegisterRoutes(v1.Group(prefix))
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Content-Length", httputil.UserIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler(r)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
