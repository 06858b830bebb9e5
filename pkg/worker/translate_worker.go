package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pdf2zh/pdf2zh/internal/service/translation"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
	"github.com/pdf2zh/pdf2zh/pkg/queue"
)

// TranslateWorker consumes translate:pdf tasks and runs them through
// the translation service.
type TranslateWorker struct {
	baseWorker
	svc translation.Service
}

func NewTranslateWorker(cfg *Config, svc translation.Service, log logger.Logger) (*TranslateWorker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}

	server := asynq.NewServer(
		queue.RedisOpt(),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * retryDelay
			},
		},
	)

	w := &TranslateWorker{
		baseWorker: baseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			log:    log,
		},
		svc: svc,
	}
	w.mux.HandleFunc(queue.TaskTypeTranslatePDF, w.handleTranslate)
	return w, nil
}

func (w *TranslateWorker) handleTranslate(ctx context.Context, t *asynq.Task) error {
	var task queue.TranslateTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.log.Error("failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())))
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.ID == "" || task.InputKey == "" {
		return fmt.Errorf("invalid task payload: missing id or input")
	}

	w.log.Info("task received",
		logger.String("taskId", task.ID),
		logger.String("filename", task.FileName))

	if err := w.svc.HandleTranslateTask(ctx, &task); err != nil {
		w.log.Error("task failed",
			logger.String("taskId", task.ID),
			logger.Error(err))
		return err
	}
	return nil
}
