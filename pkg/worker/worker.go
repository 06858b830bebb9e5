// Package worker runs the asynq consumer side of the queue.
package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// Worker 后台任务消费者
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

// Config 消费端配置
type Config struct {
	Concurrency int
	Queues      map[string]int
	// RetryDelay 是重试退避的基数，第 n 次重试等待 n × RetryDelay
	RetryDelay time.Duration
}

// DefaultConfig mirrors the queue weights used on the enqueue side.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 5,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryDelay: time.Minute,
	}
}

type baseWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    logger.Logger
}

func (w *baseWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.log.Error("worker server stopped", logger.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func (w *baseWorker) Stop() error {
	w.server.Shutdown()
	return nil
}
