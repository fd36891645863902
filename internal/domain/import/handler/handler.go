// Package handler exposes statement imports over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-budget/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-budget/internal/domain/import/service"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

// DefaultMaxUploadBytes caps statement uploads.
const DefaultMaxUploadBytes = 10 << 20

// Service is the subset of importservice.ImportService the handler uses.
type Service interface {
	Import(ctx context.Context, userID uuid.UUID, in importservice.ImportInput) (*importservice.ImportResult, error)
	GetImportJob(ctx context.Context, userID, id uuid.UUID) (*repository.ImportJob, error)
	ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.ImportJob, error)
}

// ImportHandler handles statement uploads and import job lookups.
type ImportHandler struct {
	importSvc Service
	maxBytes  int64
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler. maxBytes <= 0 means
// DefaultMaxUploadBytes.
func NewImportHandler(importSvc Service, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{importSvc: importSvc, maxBytes: maxBytes, logger: logger}
}

// RegisterRoutes registers the import routes with r.
func (h *ImportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Upload)
	r.GET("", h.ListImportJobs)
	r.GET("/:id", h.GetImportJob)
}

// Upload imports the statement in the multipart field "file".
func (h *ImportHandler) Upload(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.NewError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("statement exceeds %d bytes", h.maxBytes))
			return
		}
		httputil.NewError(c, http.StatusBadRequest, errors.New("multipart field \"file\" is required"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}

	result, err := h.importSvc.Import(c.Request.Context(), userID, importservice.ImportInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	switch {
	case errors.Is(err, parser.ErrEmptyInput), errors.Is(err, parser.ErrUnknownFormat):
		httputil.NewError(c, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		httputil.InternalError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetImportJob returns one import job.
func (h *ImportHandler) GetImportJob(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, errors.New("invalid import job id"))
		return
	}

	job, err := h.importSvc.GetImportJob(c.Request.Context(), userID, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httputil.NewError(c, http.StatusNotFound, err)
	case err != nil:
		httputil.InternalError(c, h.logger, err)
	default:
		c.JSON(http.StatusOK, job)
	}
}

// ListImportJobs returns the most recent import jobs, up to ?limit=.
func (h *ImportHandler) ListImportJobs(c *gin.Context) {
	userID, err := httputil.UserID(c)
	if err != nil {
		httputil.NewError(c, http.StatusUnauthorized, err)
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			httputil.NewError(c, http.StatusBadRequest, errors.New("invalid limit "+strconv.Quote(v)))
			return
		}
	}

	jobs, err := h.importSvc.ListImportJobs(c.Request.Context(), userID, limit)
	if err != nil {
		httputil.InternalError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": jobs})
}
