package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

const (
	defaultPollInterval = 60 * time.Second
	defaultBatchSize    = 10
)

// Runner 执行一条翻译任务，返回译文 PDF 的路径。
// onProgress 以 0-100 的百分比回报进度。
type Runner func(ctx context.Context, rec *TranslateRecord, onProgress func(percent float64)) (string, error)

// Store 是 Poller 需要的任务表操作子集，由 *Repository 实现
type Store interface {
	PendingTasks(ctx context.Context, limit int) ([]TranslateRecord, error)
	Claim(ctx context.Context, id uint64) (bool, error)
	UpdateProgress(ctx context.Context, id uint64, percent float64) error
	MarkDone(ctx context.Context, id uint64, targetPath string) error
	MarkFailed(ctx context.Context, id uint64) error
}

// Poller 轮询 translate 表并串行执行待处理任务
type Poller struct {
	repo      Store
	run       Runner
	interval  time.Duration
	batchSize int
	log       logger.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval 设置空轮询的等待间隔
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBatchSize 设置单次轮询取出的任务数
func WithBatchSize(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPoller creates a task-table poller.
func NewPoller(repo Store, run Runner, log logger.Logger, opts ...PollerOption) *Poller {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Poller{
		repo:      repo,
		run:       run,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		log:       log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	for {
		n, err := p.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			p.log.Error("poll cycle failed", logger.Error(err))
		}
		if n > 0 {
			continue
		}

		p.log.Debug("no pending tasks", logger.Duration("wait", p.interval))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}
	}
}

// RunOnce 处理一批待处理任务，返回实际执行的任务数
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	records, err := p.repo.PendingTasks(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range records {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		rec := &records[i]

		claimed, err := p.repo.Claim(ctx, rec.ID)
		if err != nil {
			return processed, err
		}
		if !claimed {
			continue
		}

		p.process(ctx, rec)
		processed++
	}
	return processed, nil
}

func (p *Poller) process(ctx context.Context, rec *TranslateRecord) {
	log := p.log.With(
		logger.Int64("task_id", int64(rec.ID)),
		logger.String("file", rec.OriginFilepath),
		logger.String("service", rec.Service()),
	)
	log.Info("processing translate task")

	onProgress := func(percent float64) {
		if err := p.repo.UpdateProgress(ctx, rec.ID, percent); err != nil {
			log.Warn("failed to update progress", logger.Error(err))
		}
	}

	targetPath, err := p.run(ctx, rec, onProgress)
	if err != nil {
		log.Error("translate task failed", logger.Error(err))
		if dbErr := p.repo.MarkFailed(ctx, rec.ID); dbErr != nil {
			log.Error("failed to mark task failed", logger.Error(dbErr))
		}
		return
	}

	if err := p.repo.MarkDone(ctx, rec.ID, targetPath); err != nil {
		log.Error("failed to mark task done", logger.Error(err))
		return
	}
	log.Info("translate task done", logger.String("output", targetPath))
}
