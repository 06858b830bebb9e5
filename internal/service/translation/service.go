package translation

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/pkg/queue"
)

// Service 翻译服务接口，API 层和 worker 共用。
type Service interface {
	// SubmitFile stores the upload and enqueues a translation task.
	SubmitFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, opts models.TranslationOptions) (*models.TranslationTask, error)
	// SubmitBatch submits several uploads concurrently.
	SubmitBatch(ctx context.Context, files []*multipart.FileHeader, opts models.TranslationOptions) ([]*models.TranslationTask, error)
	// GetStatus returns the current task state.
	GetStatus(ctx context.Context, taskID string) (*models.TranslationTask, error)
	// GetOutput opens a finished task's output in the requested variant.
	GetOutput(ctx context.Context, taskID string, variant models.OutputVariant) (io.ReadCloser, string, error)
	// Cancel removes a pending task.
	Cancel(ctx context.Context, taskID string) error
	// HandleTranslateTask runs one queued task. Called by the worker.
	HandleTranslateTask(ctx context.Context, task *queue.TranslateTask) error
	// Cleanup removes stored files older than the retention period.
	Cleanup(ctx context.Context) error
}
