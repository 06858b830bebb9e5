package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pdf2zh/pdf2zh/internal/service/translation"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
	"github.com/pdf2zh/pdf2zh/pkg/worker"
)

// 过期产物清理周期
const cleanupInterval = time.Hour

func main() {
	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 创建翻译服务
	svc, err := translation.GetService(log)
	if err != nil {
		log.Error("Failed to create translation service", logger.Error(err))
		os.Exit(1)
	}

	// 创建 worker
	translateWorker, err := worker.NewTranslateWorker(worker.DefaultConfig(), svc, log)
	if err != nil {
		log.Error("Failed to create translate worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动 worker
	if err := translateWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 定期清理过期产物
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := svc.Cleanup(ctx); err != nil {
					log.Warn("Cleanup failed", logger.Error(err))
				}
			}
		}
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	log.Info("Shutting down worker...")
	translateWorker.Stop()
	log.Info("Worker stopped")
}
