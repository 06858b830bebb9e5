package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
	"github.com/pdf2zh/pdf2zh/pkg/queue"
)

type stubService struct {
	submitted    []models.TranslationOptions
	statusResult *models.TranslationTask
	outputData   string
	failSubmit   error
	cancelled    []string
}

func (s *stubService) SubmitFile(_ context.Context, _ multipart.File, header *multipart.FileHeader, opts models.TranslationOptions) (*models.TranslationTask, error) {
	if s.failSubmit != nil {
		return nil, s.failSubmit
	}
	s.submitted = append(s.submitted, opts)
	return &models.TranslationTask{
		ID:        "task-1",
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
		Metadata:  map[string]string{"filename": header.Filename},
	}, nil
}

func (s *stubService) SubmitBatch(ctx context.Context, files []*multipart.FileHeader, opts models.TranslationOptions) ([]*models.TranslationTask, error) {
	var tasks []*models.TranslationTask
	for _, h := range files {
		f, _ := h.Open()
		task, err := s.SubmitFile(ctx, f, h, opts)
		f.Close()
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *stubService) GetStatus(context.Context, string) (*models.TranslationTask, error) {
	if s.statusResult == nil {
		return nil, fmt.Errorf("task not found")
	}
	return s.statusResult, nil
}

func (s *stubService) GetOutput(_ context.Context, taskID string, variant models.OutputVariant) (io.ReadCloser, string, error) {
	if s.outputData == "" {
		return nil, "", fmt.Errorf("task is not completed")
	}
	return io.NopCloser(strings.NewReader(s.outputData)), fmt.Sprintf("paper-%s.pdf", variant), nil
}

func (s *stubService) Cancel(_ context.Context, taskID string) error {
	s.cancelled = append(s.cancelled, taskID)
	return nil
}

func (s *stubService) HandleTranslateTask(context.Context, *queue.TranslateTask) error { return nil }

func (s *stubService) Cleanup(context.Context) error { return nil }

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTranslateHandler(svc, logger.NewNop())

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)
	v1.GET("/services", h.Services)
	v1.POST("/translate", h.Translate)
	v1.GET("/translate/status/:taskId", h.GetStatus)
	v1.GET("/translate/download/:taskId", h.Download)
	v1.DELETE("/translate/task/:taskId", h.Cancel)
	return r
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	fw.Write([]byte("%PDF-1.4"))
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestTranslateEndpoint(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc)

	body, contentType := multipartBody(t, map[string]string{
		"service": "openai:gpt-4o-mini",
		"langIn":  "en",
		"langOut": "zh",
		"pages":   "1-3",
		"threads": "8",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "paper.pdf", resp.Filename)

	require.Len(t, svc.submitted, 1)
	opts := svc.submitted[0]
	assert.Equal(t, "openai:gpt-4o-mini", opts.Service)
	assert.Equal(t, "1-3", opts.Pages)
	assert.Equal(t, 8, opts.Threads)
}

func TestTranslateEndpointDefaults(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "google", svc.submitted[0].Service)
	assert.Equal(t, "en", svc.submitted[0].LangIn)
	assert.Equal(t, "zh", svc.submitted[0].LangOut)
}

func TestTranslateEndpointMissingFile(t *testing.T) {
	r := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatusEndpoint(t *testing.T) {
	svc := &stubService{statusResult: &models.TranslationTask{
		ID:       "task-1",
		Status:   models.StatusRunning,
		Progress: 40,
		Metadata: map[string]string{"stage": "translating"},
	}}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/translate/status/task-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp["status"])
	assert.Equal(t, float64(40), resp["progress"])
}

func TestGetStatusEndpointCompletedHasDownloadLinks(t *testing.T) {
	svc := &stubService{statusResult: &models.TranslationTask{
		ID:       "task-1",
		Status:   models.StatusCompleted,
		Progress: 100,
	}}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/translate/status/task-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Downloads map[string]string `json:"downloads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Downloads)
	assert.Contains(t, resp.Downloads["mono"], "/api/v1/translate/download/task-1?variant=mono")
	assert.Contains(t, resp.Downloads["dual"], "variant=dual")
}

func TestGetStatusEndpointNotFound(t *testing.T) {
	r := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/translate/status/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadEndpoint(t *testing.T) {
	svc := &stubService{outputData: "pdf bytes"}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/translate/download/task-1?variant=dual", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "paper-dual.pdf")
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestDownloadEndpointBadVariant(t *testing.T) {
	r := newTestRouter(&stubService{outputData: "pdf"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/translate/download/task-1?variant=triple", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelEndpoint(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/translate/task/task-9", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"task-9"}, svc.cancelled)
}

func TestServicesEndpoint(t *testing.T) {
	r := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Services []struct {
			Name         string   `json:"name"`
			Description  string   `json:"description"`
			ConfigNeeded bool     `json:"config_needed"`
			EnvVars      []string `json:"env_vars"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	byName := make(map[string]bool)
	for _, svc := range resp.Services {
		byName[svc.Name] = true
		if svc.Name == "google" {
			assert.False(t, svc.ConfigNeeded)
			assert.Empty(t, svc.EnvVars)
		}
		if svc.Name == "openai" {
			assert.True(t, svc.ConfigNeeded)
			assert.Contains(t, svc.EnvVars, "OPENAI_API_KEY")
		}
	}
	assert.True(t, byName["google"])
	assert.True(t, byName["openai"])
	assert.True(t, byName["tencent"])
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
