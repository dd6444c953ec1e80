package events

import (
	"context"
	"sync"
	"time"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultDedupeTTL = 24 * time.Hour

// Deduplicator отмечает обработанные события, чтобы повторная доставка
// не порождала второе уведомление
type Deduplicator interface {
	// FirstSeen возвращает true, если ключ встретился впервые
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// RedisDeduplicator - SETNX с TTL, общий для всех инстансов API
type RedisDeduplicator struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduplicator(rdb *redis.Client, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &RedisDeduplicator{rdb: rdb, prefix: "gigboard:events:seen:", ttl: ttl}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
}

// MemoryDeduplicator - вариант для одного процесса и тестов
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &MemoryDeduplicator{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduplicator) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[key]; ok && now.Sub(at) < d.ttl {
		return false, nil
	}
	d.seen[key] = now

	// чистим протухшие ключи, чтобы карта не росла бесконечно
	if len(d.seen) > 10000 {
		for k, at := range d.seen {
			if now.Sub(at) >= d.ttl {
				delete(d.seen, k)
			}
		}
	}
	return true, nil
}

// Once оборачивает обработчик: событие с уже виденным ID для этого
// подписчика пропускается. Ошибка хранилища не блокирует доставку.
func Once(d Deduplicator, subscriber string, h Handler) Handler {
	return func(ctx context.Context, evt models.DomainEvent) error {
		first, err := d.FirstSeen(ctx, subscriber+":"+evt.ID)
		if err == nil && !first {
			return nil
		}
		return h(ctx, evt)
	}
}
