package taskstore

import (
	"context"
	"os"

	"github.com/pdf2zh/pdf2zh/internal/cache"
	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/pipeline"
	"github.com/pdf2zh/pdf2zh/internal/translator"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

const runnerThreads = 10

// NewPipelineRunner 返回直接在本机执行翻译流水线的 Runner。
// 产物写入 outputDir，返回 mono 变体的路径。
func NewPipelineRunner(detector layout.Detector, outputDir string, log logger.Logger) Runner {
	if outputDir == "" {
		outputDir = "pdf2zh_files"
	}
	return func(ctx context.Context, rec *TranslateRecord, onProgress func(percent float64)) (string, error) {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return "", err
		}

		tr, err := translator.New(rec.Service(), rec.OriginLang, rec.TargetLang)
		if err != nil {
			return "", err
		}

		var c cache.Cache
		if rc, err := cache.NewRedisCache(tr.Name(), rec.OriginLang, rec.TargetLang); err == nil {
			c = rc
			defer rc.Close()
		} else {
			log.Warn("translation cache unavailable", logger.Error(err))
		}

		p, err := pipeline.New(pipeline.Config{
			Detector:   detector,
			Translator: tr,
			Cache:      c,
			Options: models.TranslationOptions{
				Service: rec.Service(),
				LangIn:  rec.OriginLang,
				LangOut: rec.TargetLang,
				Threads: runnerThreads,
			},
			Logger: log,
		})
		if err != nil {
			return "", err
		}

		result, err := p.Run(ctx, rec.OriginFilepath, outputDir, "", func(pr pipeline.Progress) {
			if onProgress != nil {
				onProgress(float64(pr.Percent))
			}
		})
		if err != nil {
			return "", err
		}
		return result.MonoPath, nil
	}
}
