package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-budget/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-budget/internal/domain/import/service"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/httputil"
)

type fakeService struct {
	input importservice.ImportInput
	limit int
	err   error
}

func (f *fakeService) Import(_ context.Context, _ uuid.UUID, in importservice.ImportInput) (*importservice.ImportResult, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &importservice.ImportResult{
		JobID:        uuid.New(),
		Format:       "Monzo",
		RowsTotal:    2,
		RowsImported: 1,
		RowsFailed:   1,
		Errors:       []ledger.RowError{{Row: 3, Message: "Missing required fields"}},
	}, nil
}

func (f *fakeService) GetImportJob(_ context.Context, _, id uuid.UUID) (*repository.ImportJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &repository.ImportJob{ID: id, FileName: "monzo.csv", Status: repository.StatusSucceeded}, nil
}

func (f *fakeService) ListImportJobs(_ context.Context, _ uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	f.limit = limit
	return []*repository.ImportJob{}, f.err
}

func setup(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(svc, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := gin.New()
	h.RegisterRoutes(r.Group("/v1/imports", httputil.RequireUser()))
	return r
}

func upload(t *testing.T, r http.Handler, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(httputil.UserIDHeader, uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	w := upload(t, setup(svc), "file", "monzo.csv", "Date,Description,Amount,Name\n")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, "monzo.csv", svc.input.FileName)
	assert.Equal(t, "Date,Description,Amount,Name\n", string(svc.input.Data))

	var res importservice.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Monzo", res.Format)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
}

func TestUploadMissingFile(t *testing.T) {
	w := upload(t, setup(&fakeService{}), "statement", "monzo.csv", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectedStatement(t *testing.T) {
	w := upload(t, setup(&fakeService{err: parser.ErrUnknownFormat}), "file", "x.csv", "foo,bar\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Could not detect CSV format")

	w = upload(t, setup(&fakeService{err: errors.New("db gone")}), "file", "x.csv", "foo,bar\n")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(httputil.UserIDHeader, uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetImportJob(t *testing.T) {
	id := uuid.New()
	w := get(setup(&fakeService{}), "/v1/imports/"+id.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())

	assert.Equal(t, http.StatusBadRequest, get(setup(&fakeService{}), "/v1/imports/nope").Code)
	assert.Equal(t, http.StatusNotFound,
		get(setup(&fakeService{err: repository.ErrNotFound}), "/v1/imports/"+id.String()).Code)
}

func TestListImportJobs(t *testing.T) {
	svc := &fakeService{}
	w := get(setup(svc), "/v1/imports?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.limit)
	assert.JSONEq(t, `{"imports":[]}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(setup(svc), "/v1/imports?limit=ten").Code)
}
