package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/taskstore"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/poller.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	repo, err := taskstore.Open()
	if err != nil {
		log.Error("Failed to connect to task database", logger.Error(err))
		os.Exit(1)
	}

	detector := layout.NewDetector(config.GetLayoutConfig(), log)
	defer detector.Close()

	runner := taskstore.NewPipelineRunner(detector, config.GetStorageConfig().OutputDir, log)
	poller := taskstore.NewPoller(repo, runner, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 中断信号触发优雅退出
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down poller...")
		cancel()
	}()

	log.Info("Poller started")
	if err := poller.Run(ctx); err != nil {
		log.Error("Poller stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Poller stopped")
}
