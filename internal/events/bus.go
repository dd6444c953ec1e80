package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"

	"github.com/google/uuid"
)

// AllEvents - подписка на все типы событий
const AllEvents models.EventType = "*"

var ErrBusClosed = errors.New("event bus is closed")

// Handler обрабатывает одно доменное событие
type Handler func(ctx context.Context, evt models.DomainEvent) error

// Bus - шина доменных событий. Публикация не ждет обработчиков и
// не возвращает их ошибки: побочные эффекты не откатывают бизнес-операцию.
type Bus interface {
	Publish(ctx context.Context, evt models.DomainEvent) error
	PublishMany(ctx context.Context, evts []models.DomainEvent) error
	Subscribe(eventType models.EventType, handler Handler) string
	Unsubscribe(subscriptionID string)
}

type subscription struct {
	id        string
	eventType models.EventType
	handler   Handler
}

// InMemoryBus - шина в памяти процесса
type InMemoryBus struct {
	mu          sync.RWMutex
	subs        []subscription
	synchronous bool
	closed      bool
	wg          sync.WaitGroup
}

type Option func(*InMemoryBus)

// WithSynchronousDelivery - обработчики вызываются в горутине публикующего (тесты, CLI)
func WithSynchronousDelivery() Option {
	return func(b *InMemoryBus) { b.synchronous = true }
}

func NewInMemoryBus(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *InMemoryBus) Subscribe(eventType models.EventType, handler Handler) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	b.mu.Unlock()
	return id
}

func (b *InMemoryBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == subscriptionID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *InMemoryBus) Publish(ctx context.Context, evt models.DomainEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var handlers []subscription
	for _, s := range b.subs {
		if s.eventType == AllEvents || s.eventType == evt.EventType {
			handlers = append(handlers, s)
		}
	}
	if !b.synchronous {
		b.wg.Add(len(handlers))
	}
	b.mu.RUnlock()

	// обработчики живут дольше запроса
	ctx = logger.WithCorrelationID(context.WithoutCancel(ctx), evt.ID)

	for _, s := range handlers {
		if b.synchronous {
			b.deliver(ctx, s, evt)
			continue
		}
		go func(s subscription) {
			defer b.wg.Done()
			b.deliver(ctx, s, evt)
		}(s)
	}
	return nil
}

func (b *InMemoryBus) PublishMany(ctx context.Context, evts []models.DomainEvent) error {
	for _, evt := range evts {
		if err := b.Publish(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryBus) deliver(ctx context.Context, s subscription, evt models.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "event handler panicked",
				"event_type", evt.EventType,
				"subscription", s.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := s.handler(ctx, evt); err != nil {
		logger.CtxWithError(ctx, "event handler failed", err,
			"event_type", evt.EventType,
			"subscription", s.id,
		)
	}
}

// Wait ждет завершения уже запущенных обработчиков
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

// Close перестает принимать события и дожидается текущих обработчиков
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
