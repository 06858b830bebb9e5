package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/service/translation"
	"github.com/pdf2zh/pdf2zh/internal/translator"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

type TranslateHandler struct {
	service translation.Service
	log     logger.Logger
}

// SubmitResponse 任务创建响应
type SubmitResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"fileSize"`
	Service   string `json:"service"`
	LangIn    string `json:"langIn"`
	LangOut   string `json:"langOut"`
	CreatedAt string `json:"createdAt"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func NewTranslateHandler(service translation.Service, log logger.Logger) *TranslateHandler {
	return &TranslateHandler{service: service, log: log}
}

// optionsFromForm reads the translation parameters shared by the single
// and batch endpoints.
func optionsFromForm(c *gin.Context) models.TranslationOptions {
	threads := 0
	if v := c.PostForm("threads"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			threads = n
		}
	}
	return models.TranslationOptions{
		LangIn:    c.DefaultPostForm("langIn", "en"),
		LangOut:   c.DefaultPostForm("langOut", "zh"),
		Service:   c.DefaultPostForm("service", "google"),
		Pages:     c.PostForm("pages"),
		Threads:   threads,
		FontRegex: c.PostForm("fontRegex"),
		CharRegex: c.PostForm("charRegex"),
	}
}

// Translate 提交单个 PDF 翻译任务
func (h *TranslateHandler) Translate(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	opts := optionsFromForm(c)
	task, err := h.service.SubmitFile(c.Request.Context(), file, header, opts)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to submit translation", err)
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Filename:  header.Filename,
		FileSize:  header.Size,
		Service:   opts.Service,
		LangIn:    opts.LangIn,
		LangOut:   opts.LangOut,
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	})
}

// TranslateBatch 批量提交
func (h *TranslateHandler) TranslateBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	opts := optionsFromForm(c)
	tasks, err := h.service.SubmitBatch(c.Request.Context(), files, opts)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to submit files", err)
		return
	}

	responses := make([]SubmitResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = SubmitResponse{
			TaskID:    task.ID,
			Status:    string(task.Status),
			Filename:  task.Metadata["filename"],
			Service:   opts.Service,
			LangIn:    opts.LangIn,
			LangOut:   opts.LangOut,
			CreatedAt: task.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Translating %d documents", len(tasks)),
		"tasks":   responses,
	})
}

// GetStatus 查询任务状态
func (h *TranslateHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to get status", err)
		return
	}

	resp := gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"metadata":  task.Metadata,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
		"updatedAt": task.UpdatedAt.Format(time.RFC3339),
	}
	if task.Status == models.StatusCompleted {
		resp["downloads"] = gin.H{
			"mono": downloadURL(task.ID, models.VariantMono),
			"dual": downloadURL(task.ID, models.VariantDual),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// downloadURL 拼接产物下载地址，BASE_URL 未配置时返回相对路径
func downloadURL(taskID string, variant models.OutputVariant) string {
	base := strings.TrimSuffix(config.GetAPIConfig().BaseURL, "/")
	return fmt.Sprintf("%s/api/v1/translate/download/%s?variant=%s", base, taskID, variant)
}

// Download 下载翻译结果。variant=mono（默认）或 dual。
func (h *TranslateHandler) Download(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	variant := models.OutputVariant(c.DefaultQuery("variant", string(models.VariantMono)))
	if variant != models.VariantMono && variant != models.VariantDual {
		h.handleError(c, http.StatusBadRequest, "Variant must be mono or dual", nil)
		return
	}

	reader, filename, err := h.service.GetOutput(c.Request.Context(), taskID, variant)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to get output", err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Warn("download interrupted",
			logger.String("taskId", taskID),
			logger.Error(err))
	}
}

// Cancel 取消任务
func (h *TranslateHandler) Cancel(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// Services 返回可用的翻译后端目录，含各自需要的环境变量
func (h *TranslateHandler) Services(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": translator.Catalog(),
	})
}

// Health 健康检查
func (h *TranslateHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TranslateHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.log.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
