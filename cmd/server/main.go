package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdf2zh/pdf2zh/api/handlers"
	"github.com/pdf2zh/pdf2zh/api/routes"
	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/internal/service/translation"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

func main() {
	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// init translation service
	svc, err := translation.GetService(log)
	if err != nil {
		log.Fatal("Failed to get translation service:", logger.Error(err))
	}

	// init handlers
	h := handlers.NewHandlers(svc, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	apiCfg := config.GetAPIConfig()
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", apiCfg.Host, apiCfg.Port),
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
}
