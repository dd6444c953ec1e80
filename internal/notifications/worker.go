package notifications

import (
	"context"
	"fmt"
	"sync"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/hibiken/asynq"
)

// Worker забирает задачи доставки из Redis
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor ProcessFunc
	running   bool
	mu        sync.Mutex
}

// NewWorker возвращает nil, если Redis выключен: тогда работает SyncQueue
func NewWorker(cfg *config.Config, processor ProcessFunc) *Worker {
	if !cfg.Redis.Enabled {
		return nil
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{queueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.WorkerLog("notification_worker", task.Type(), err)
		}),
	})

	return &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	w.mux.HandleFunc(TaskTypeDeliver, w.handle)

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	w.running = true
	logger.Info("notification worker started")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Info("notification worker stopped")
}

func (w *Worker) handle(ctx context.Context, t *asynq.Task) error {
	var task Task
	if err := sonic.Unmarshal(t.Payload(), &task); err != nil {
		// битый payload не ретраим
		return fmt.Errorf("unmarshal notification task: %v: %w", err, asynq.SkipRetry)
	}
	return w.processor(ctx, &task)
}
