package taskstore

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pdf2zh/pdf2zh/config"
)

// Repository 封装 translate 表的读写
type Repository struct {
	db *gorm.DB
}

// Open connects to MySQL using the poller DB config.
func Open() (*Repository, error) {
	cfg := config.GetDBConfig()
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return &Repository{db: db}, nil
}

// NewRepository wraps an existing gorm connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PendingTasks 查询 status='start' 的待处理任务
func (r *Repository) PendingTasks(ctx context.Context, limit int) ([]TranslateRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []TranslateRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusStart).
		Order("id").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	return records, nil
}

// Claim 将任务标记为处理中。只有仍处于 start 状态的行会被更新，
// 返回 false 表示已被其他 poller 抢走。
func (r *Repository) Claim(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&TranslateRecord{}).
		Where("id = ? AND status = ?", id, StatusStart).
		Update("status", StatusProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("claim task %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateProgress 更新 process 列（0-100）
func (r *Repository) UpdateProgress(ctx context.Context, id uint64, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	err := r.db.WithContext(ctx).
		Model(&TranslateRecord{}).
		Where("id = ?", id).
		Update("process", percent).Error
	if err != nil {
		return fmt.Errorf("update progress for task %d: %w", id, err)
	}
	return nil
}

// MarkDone 记录输出路径并置为 done
func (r *Repository) MarkDone(ctx context.Context, id uint64, targetPath string) error {
	err := r.db.WithContext(ctx).
		Model(&TranslateRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          StatusDone,
			"process":         100.0,
			"target_filepath": targetPath,
		}).Error
	if err != nil {
		return fmt.Errorf("mark task %d done: %w", id, err)
	}
	return nil
}

// MarkFailed 置为 failed
func (r *Repository) MarkFailed(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).
		Model(&TranslateRecord{}).
		Where("id = ?", id).
		Update("status", StatusFailed).Error
	if err != nil {
		return fmt.Errorf("mark task %d failed: %w", id, err)
	}
	return nil
}
