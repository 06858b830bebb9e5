package translation

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdf2zh/pdf2zh/internal/cache"
	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/pipeline"
	"github.com/pdf2zh/pdf2zh/internal/translator"
	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
	"github.com/pdf2zh/pdf2zh/pkg/queue"
	"github.com/pdf2zh/pdf2zh/pkg/storage"
)

// Config 服务配置
type Config struct {
	MaxFileSize     int64
	QueuePriority   int
	RetentionPeriod time.Duration
}

func defaultConfig() *Config {
	return &Config{
		MaxFileSize:     100 * 1024 * 1024,
		QueuePriority:   2,
		RetentionPeriod: 24 * time.Hour,
	}
}

type translationService struct {
	queue    queue.Queue
	storage  storage.Storage
	detector layout.Detector
	log      logger.Logger
	cfg      *Config
}

// NewService wires an explicit set of collaborators, mostly for tests.
func NewService(q queue.Queue, store storage.Storage, detector layout.Detector, log logger.Logger, cfg *Config) Service {
	if cfg == nil {
		cfg = defaultConfig()
	}
	return &translationService{
		queue:    q,
		storage:  store,
		detector: detector,
		log:      log,
		cfg:      cfg,
	}
}

// GetService builds the service from the environment configuration.
func GetService(log logger.Logger) (Service, error) {
	store, err := storage.New(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	detector := layout.NewDetector(config.GetLayoutConfig(), log)

	return NewService(q, store, detector, log, nil), nil
}

func (s *translationService) SubmitFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, opts models.TranslationOptions) (*models.TranslationTask, error) {
	if err := s.validateUpload(header); err != nil {
		return nil, err
	}
	if _, err := translator.New(orDefault(opts.Service, "google"), orDefault(opts.LangIn, "en"), orDefault(opts.LangOut, "zh")); err != nil {
		return nil, err
	}

	taskID := uuid.New().String()
	inputKey := filepath.Join("uploads", taskID+".pdf")

	if _, err := s.storage.Store(ctx, file, inputKey); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	task := &queue.TranslateTask{
		ID:        taskID,
		InputKey:  inputKey,
		FileName:  header.Filename,
		Options:   opts,
		Priority:  s.cfg.QueuePriority,
		CreatedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// 入队失败时不留下孤儿文件
		if delErr := s.storage.Delete(ctx, inputKey); delErr != nil {
			s.log.Warn("failed to remove orphaned upload", logger.Error(delErr))
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.log.Info("translation task created",
		logger.String("taskId", taskID),
		logger.String("filename", header.Filename),
		logger.String("service", opts.Service))

	return &models.TranslationTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeTranslatePDF,
		Priority:  task.Priority,
		CreatedAt: task.CreatedAt,
		Metadata: map[string]string{
			"filename": header.Filename,
			"langIn":   opts.LangIn,
			"langOut":  opts.LangOut,
			"service":  opts.Service,
		},
	}, nil
}

func (s *translationService) SubmitBatch(ctx context.Context, files []*multipart.FileHeader, opts models.TranslationOptions) ([]*models.TranslationTask, error) {
	tasks := make([]*models.TranslationTask, 0, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.SubmitFile(gctx, file, header, opts)
			if err != nil {
				return fmt.Errorf("failed to submit %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

func (s *translationService) GetStatus(ctx context.Context, taskID string) (*models.TranslationTask, error) {
	status, err := s.queue.GetStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	task := &models.TranslationTask{
		ID:        status.TaskID,
		Status:    models.TranslationStatus(status.Status),
		Type:      queue.TaskTypeTranslatePDF,
		Progress:  float64(status.Progress),
		Error:     status.Error,
		Metadata:  map[string]string{},
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}
	if status.Stage != "" {
		task.Metadata["stage"] = status.Stage
	}
	if status.MonoKey != "" {
		task.Metadata["monoKey"] = status.MonoKey
		task.Metadata["dualKey"] = status.DualKey
	}
	return task, nil
}

func (s *translationService) GetOutput(ctx context.Context, taskID string, variant models.OutputVariant) (io.ReadCloser, string, error) {
	status, err := s.queue.GetStatus(ctx, taskID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get task status: %w", err)
	}
	if status.Status != string(models.StatusCompleted) {
		return nil, "", fmt.Errorf("task is not completed: %s", status.Status)
	}

	key := status.MonoKey
	if variant == models.VariantDual {
		key = status.DualKey
	}
	if key == "" {
		return nil, "", fmt.Errorf("no %s output recorded for task %s", variant, taskID)
	}

	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get output: %w", err)
	}
	return reader, filepath.Base(key), nil
}

func (s *translationService) Cancel(ctx context.Context, taskID string) error {
	if err := s.queue.Cancel(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	s.log.Info("task cancelled", logger.String("taskId", taskID))
	return nil
}

// HandleTranslateTask runs the pipeline for one queued task, reporting
// progress through the status store.
func (s *translationService) HandleTranslateTask(ctx context.Context, task *queue.TranslateTask) error {
	if task == nil || task.InputKey == "" {
		return fmt.Errorf("invalid task: missing input")
	}
	log := s.log.With(logger.String("taskId", task.ID))
	log.Info("translating document", logger.String("filename", task.FileName))

	s.saveStatus(ctx, &queue.Status{
		TaskID:    task.ID,
		Status:    string(models.StatusRunning),
		StartedAt: task.CreatedAt,
	})

	workDir, err := os.MkdirTemp("", "pdf2zh-task-")
	if err != nil {
		return s.fail(ctx, task, fmt.Errorf("failed to create work dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	inputPath, err := s.fetchInput(ctx, task, workDir)
	if err != nil {
		return s.fail(ctx, task, err)
	}

	opts := task.Options
	tr, err := translator.New(orDefault(opts.Service, "google"), orDefault(opts.LangIn, "en"), orDefault(opts.LangOut, "zh"))
	if err != nil {
		return s.fail(ctx, task, err)
	}

	var c cache.Cache
	if rc, err := cache.NewRedisCache(tr.Name(), opts.LangIn, opts.LangOut); err == nil {
		c = rc
		defer rc.Close()
	} else {
		log.Warn("translation cache unavailable", logger.Error(err))
	}

	p, err := pipeline.New(pipeline.Config{
		Detector:   s.detector,
		Translator: tr,
		Cache:      c,
		Options:    opts,
		Logger:     log,
	})
	if err != nil {
		return s.fail(ctx, task, err)
	}

	result, err := p.Run(ctx, inputPath, workDir, opts.Pages, func(pr pipeline.Progress) {
		s.saveStatus(ctx, &queue.Status{
			TaskID:    task.ID,
			Status:    string(models.StatusRunning),
			Stage:     pr.Stage,
			Progress:  pr.Percent,
			StartedAt: task.CreatedAt,
		})
	})
	if err != nil {
		return s.fail(ctx, task, err)
	}

	monoKey, err := s.storeOutput(ctx, task.ID, result.MonoPath)
	if err != nil {
		return s.fail(ctx, task, err)
	}
	dualKey, err := s.storeOutput(ctx, task.ID, result.DualPath)
	if err != nil {
		return s.fail(ctx, task, err)
	}

	s.saveStatus(ctx, &queue.Status{
		TaskID:     task.ID,
		Status:     string(models.StatusCompleted),
		Progress:   100,
		MonoKey:    monoKey,
		DualKey:    dualKey,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	})

	log.Info("translation completed",
		logger.Int("blocks", result.TotalBlocks),
		logger.Int("cached", result.CachedBlocks),
		logger.String("mono", monoKey))
	return nil
}

func (s *translationService) Cleanup(ctx context.Context) error {
	threshold := time.Now().Add(-s.cfg.RetentionPeriod)
	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}
	s.log.Info("storage cleanup completed", logger.Time("threshold", threshold))
	return nil
}

func (s *translationService) fetchInput(ctx context.Context, task *queue.TranslateTask, workDir string) (string, error) {
	reader, err := s.storage.Get(ctx, task.InputKey)
	if err != nil {
		return "", fmt.Errorf("failed to get input: %w", err)
	}
	defer reader.Close()

	name := task.FileName
	if name == "" {
		name = "document.pdf"
	}
	inputPath := filepath.Join(workDir, filepath.Base(name))
	f, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to stage input: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, reader); err != nil {
		return "", fmt.Errorf("failed to stage input: %w", err)
	}
	return inputPath, nil
}

func (s *translationService) storeOutput(ctx context.Context, taskID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	key := filepath.Join("results", taskID, filepath.Base(path))
	if _, err := s.storage.Store(ctx, f, key); err != nil {
		return "", fmt.Errorf("failed to store output: %w", err)
	}
	return key, nil
}

func (s *translationService) fail(ctx context.Context, task *queue.TranslateTask, err error) error {
	s.log.Error("translation failed",
		logger.String("taskId", task.ID),
		logger.Error(err))
	s.saveStatus(ctx, &queue.Status{
		TaskID:     task.ID,
		Status:     string(models.StatusFailed),
		Error:      err.Error(),
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	})
	return err
}

func (s *translationService) saveStatus(ctx context.Context, status *queue.Status) {
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		s.log.Warn("failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.Error(err))
	}
}

func (s *translationService) validateUpload(header *multipart.FileHeader) error {
	if header.Size > s.cfg.MaxFileSize {
		return fmt.Errorf("file too large: %d bytes (limit %d)", header.Size, s.cfg.MaxFileSize)
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(header.Filename))
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
