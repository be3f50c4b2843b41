package mapping

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ductsync/internal/metrics"
)

type snapshot[T any] struct {
	data     T
	loadedAt time.Time
}

// tableCache 整表快照缓存
// 读路径只读原子指针；刷新持有互斥锁，构建完成后整体替换
type tableCache[T any] struct {
	table  string
	ttl    time.Duration
	clock  func() time.Time
	load   func(ctx context.Context) (T, error)
	logger *zap.Logger

	cur   atomic.Pointer[snapshot[T]]
	stale atomic.Bool
	mu    sync.Mutex
}

func newTableCache[T any](table string, ttl time.Duration, clock func() time.Time, logger *zap.Logger,
	load func(ctx context.Context) (T, error)) *tableCache[T] {
	return &tableCache[T]{table: table, ttl: ttl, clock: clock, load: load, logger: logger}
}

func (c *tableCache[T]) expired(s *snapshot[T]) bool {
	return c.stale.Load() || c.clock().Sub(s.loadedAt) >= c.ttl
}

// get 返回当前快照；过期时由一个调用方刷新，其余调用方继续使用旧快照
func (c *tableCache[T]) get(ctx context.Context) (T, error) {
	s := c.cur.Load()
	if s != nil && !c.expired(s) {
		return s.data, nil
	}

	if s != nil {
		if !c.mu.TryLock() {
			return s.data, nil
		}
	} else {
		c.mu.Lock()
	}
	defer c.mu.Unlock()

	// 等锁期间可能已被其他调用方刷新
	if now := c.cur.Load(); now != nil && now != s && !c.expired(now) {
		return now.data, nil
	}
	prev := c.cur.Load()

	c.stale.Store(false)
	data, err := c.load(ctx)
	if err != nil {
		c.stale.Store(true)
		metrics.CacheRefresh.WithLabelValues(c.table, "error").Inc()
		if prev != nil {
			c.logger.Warn("cache refresh failed, serving previous snapshot",
				zap.String("table", c.table), zap.Error(err))
			return prev.data, nil
		}
		var zero T
		return zero, err
	}

	c.cur.Store(&snapshot[T]{data: data, loadedAt: c.clock()})
	metrics.CacheRefresh.WithLabelValues(c.table, "ok").Inc()
	c.logger.Debug("cache refreshed", zap.String("table", c.table))
	return data, nil
}

// invalidate 下一次读取强制刷新
func (c *tableCache[T]) invalidate() {
	c.stale.Store(true)
}

// loadedAt 最近一次成功加载时间（未加载时为零值）
func (c *tableCache[T]) loadedAt() time.Time {
	if s := c.cur.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}
