package notifications

import (
	"context"
	"fmt"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeDeliver = "notification:deliver"
	queueName       = "notifications"
)

// Task - одна доставка по одному каналу
type Task struct {
	Channel  string                 `json:"channel"` // email, push, sms
	UserID   string                 `json:"user_id,omitempty"`
	To       []string               `json:"to,omitempty"`
	Phone    string                 `json:"phone,omitempty"`
	Type     string                 `json:"type,omitempty"`
	Subject  string                 `json:"subject,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Template string                 `json:"template,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ProcessFunc доставляет задачу
type ProcessFunc func(context.Context, *Task) error

// TaskQueue - очередь доставки уведомлений
type TaskQueue interface {
	Enqueue(ctx context.Context, task *Task) error
	// IsAsync - true, если задачи выполняет отдельный воркер
	IsAsync() bool
	Close() error
}

// NewTaskQueue выбирает asynq при включенном Redis, иначе синхронную очередь
func NewTaskQueue(cfg *config.Config, processor ProcessFunc) TaskQueue {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Info("notification queue initialized", "mode", "async", "redis", cfg.Redis.Addr)
			return queue
		}
		logger.Warn("redis unavailable, falling back to sync notification queue", "error", err.Error())
	}
	q := NewSyncQueue()
	q.SetProcessor(processor)
	logger.Info("notification queue initialized", "mode", "sync")
	return q
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// AsyncQueue кладет задачи в Redis через asynq
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.Config) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := sonic.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal notification task: %w", err)
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeDeliver, payload),
		asynq.Queue(queueName),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.CtxDebug(ctx, "notification enqueued", "task_id", info.ID, "channel", task.Channel)
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue доставляет задачу сразу, в вызывающей горутине.
// Вызывается из подписчиков шины, которые и так работают вне запроса.
type SyncQueue struct {
	processor ProcessFunc
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor ProcessFunc) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(ctx context.Context, task *Task) error {
	if q.processor == nil {
		logger.CtxWarn(ctx, "no notification processor set, task dropped", "channel", task.Channel)
		return nil
	}
	return q.processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
