// Package queue wraps asynq for task dispatch plus a Redis-backed
// status store that outlives the queue entries themselves.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/internal/models"
)

// TaskTypeTranslatePDF 翻译任务类型
const TaskTypeTranslatePDF = "translate:pdf"

const (
	statusKeyPrefix = "task_status:"
	statusTTL       = 24 * time.Hour
)

// Queue 任务队列接口
type Queue interface {
	Enqueue(ctx context.Context, task *TranslateTask) error
	GetStatus(ctx context.Context, taskID string) (*Status, error)
	SaveStatus(ctx context.Context, status *Status) error
	Cancel(ctx context.Context, taskID string) error
	Close() error
}

// TranslateTask is the payload carried through asynq.
type TranslateTask struct {
	ID        string                    `json:"id"`
	InputKey  string                    `json:"input_key"` // storage key of the uploaded document
	FileName  string                    `json:"file_name"`
	Options   models.TranslationOptions `json:"options"`
	Priority  int                       `json:"priority"` // 1 critical, 2 default, other low
	CreatedAt time.Time                 `json:"created_at"`
}

// Status 任务状态，写入 Redis 供 API 查询。
type Status struct {
	TaskID     string    `json:"task_id"`
	Status     string    `json:"status"` // pending, running, completed, failed, cancelled
	Stage      string    `json:"stage,omitempty"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	MonoKey    string    `json:"mono_key,omitempty"`
	DualKey    string    `json:"dual_key,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Config 队列配置。重试间隔属于消费端，在 pkg/worker 配置。
type Config struct {
	MaxRetries     int
	ProcessTimeout time.Duration
	Concurrency    int
}

// DefaultConfig 默认值适合单机部署
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     3,
		ProcessTimeout: 30 * time.Minute,
		Concurrency:    5,
	}
}

// AsynqQueue Queue 的 asynq 实现
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	cfg       *Config
}

// RedisOpt builds the asynq connection options from the shared config.
func RedisOpt() asynq.RedisClientOpt {
	rc := config.GetRedisConfig()
	return asynq.RedisClientOpt{
		Addr:     rc.Addr(),
		DB:       rc.DB,
		Password: rc.Password,
	}
}

// New creates the queue client side (enqueue + status). Workers are
// built separately in pkg/worker.
func New(cfg *Config) (*AsynqQueue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	redisOpt := RedisOpt()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisOpt.Addr,
		DB:       redisOpt.DB,
		Password: redisOpt.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
		cfg:       cfg,
	}, nil
}

// Enqueue 入队并写入初始状态
func (q *AsynqQueue) Enqueue(ctx context.Context, task *TranslateTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(q.cfg.MaxRetries),
		asynq.Timeout(q.cfg.ProcessTimeout),
		asynq.TaskID(task.ID),
		asynq.Queue(queueForPriority(task.Priority)),
	}

	t := asynq.NewTask(TaskTypeTranslatePDF, payload, opts...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return q.SaveStatus(ctx, &Status{
		TaskID:    task.ID,
		Status:    "pending",
		StartedAt: time.Now(),
	})
}

func queueForPriority(priority int) string {
	switch priority {
	case 1:
		return "critical"
	case 2:
		return "default"
	default:
		return "low"
	}
}

// GetStatus reads the stored status, falling back to asynq's own task
// state for entries that never reported one.
func (q *AsynqQueue) GetStatus(ctx context.Context, taskID string) (*Status, error) {
	data, err := q.redis.Get(ctx, statusKeyPrefix+taskID).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	if err == nil {
		var status Status
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	var info *asynq.TaskInfo
	var lastErr error
	for _, queueName := range []string{"critical", "default", "low"} {
		info, err = q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			break
		}
		lastErr = err
	}
	if info == nil {
		return nil, fmt.Errorf("task not found: %w", lastErr)
	}

	return fromTaskInfo(info), nil
}

// SaveStatus 保存状态，24 小时后过期。
func (q *AsynqQueue) SaveStatus(ctx context.Context, status *Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, statusKeyPrefix+status.TaskID, data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

// Cancel removes a pending task from whichever queue holds it and marks
// the status cancelled. Running tasks finish their current attempt.
func (q *AsynqQueue) Cancel(ctx context.Context, taskID string) error {
	var lastErr error
	deleted := false
	for _, queueName := range []string{"critical", "default", "low"} {
		if err := q.inspector.DeleteTask(queueName, taskID); err == nil {
			deleted = true
			break
		} else {
			lastErr = err
		}
	}
	if !deleted {
		return fmt.Errorf("failed to cancel task: %w", lastErr)
	}

	return q.SaveStatus(ctx, &Status{
		TaskID:     taskID,
		Status:     "cancelled",
		FinishedAt: time.Now(),
	})
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func fromTaskInfo(info *asynq.TaskInfo) *Status {
	status := &Status{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}
	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled:
		status.Status = "pending"
	case asynq.TaskStateActive:
		status.Status = "running"
	case asynq.TaskStateCompleted:
		status.Status = "completed"
		status.Progress = 100
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		status.Status = "failed"
		status.Error = info.LastErr
	default:
		status.Status = "pending"
	}
	return status
}
