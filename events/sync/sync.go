// Package sync 提供同步的进程内事件传输
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recordbin/events"
)

// Transport 同步内存传输，Publish 在调用方 goroutine 中依次执行匹配的处理器
type Transport struct {
	registry *events.Registry
	mutex    sync.RWMutex
	running  bool
}

// NewTransport 创建同步传输实例
func NewTransport() *Transport {
	return &Transport{registry: events.NewRegistry()}
}

// Publish 立即、同步地分发事件
func (t *Transport) Publish(ctx context.Context, event events.Event) error {
	t.mutex.RLock()
	running := t.running
	t.mutex.RUnlock()
	if !running {
		return fmt.Errorf("sync transport is not running")
	}

	handlers := t.registry.Match(event.Kind)
	if len(handlers) == 0 {
		// 无人监听不是错误
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("event handling completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Subscribe 注册处理器
func (t *Transport) Subscribe(kind events.Kind, handler events.Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	t.registry.Add(kind, handler)
	return nil
}

// Unsubscribe 移除处理器
func (t *Transport) Unsubscribe(kind events.Kind, handler events.Handler) error {
	t.registry.Remove(kind, handler)
	return nil
}

// Start 启动传输
func (t *Transport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("sync transport already running")
	}
	t.running = true
	return nil
}

// Close 关闭传输
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.running = false
	return nil
}

// Stats 返回统计信息
func (t *Transport) Stats() events.Stats {
	t.mutex.RLock()
	running := t.running
	t.mutex.RUnlock()
	return t.registry.Stats(running)
}

var _ events.Transport = (*Transport)(nil)
