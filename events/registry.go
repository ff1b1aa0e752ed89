package events

import (
	"sort"
	"sync"
)

// Registry 按事件类型保存处理器，供各传输实现共用
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind][]Handler)}
}

// Add 注册处理器，返回该类型此前是否没有处理器
func (r *Registry) Add(kind Kind, h Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := len(r.handlers[kind]) == 0
	r.handlers[kind] = append(r.handlers[kind], h)
	return first
}

// Remove 移除处理器，返回该类型是否已无处理器
func (r *Registry) Remove(kind Kind, h Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := r.handlers[kind]
	for i, existing := range hs {
		if existing == h {
			hs = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(r.handlers, kind)
		return true
	}
	r.handlers[kind] = hs
	return false
}

// Match 返回处理该类型事件的处理器（精确匹配在前，通配在后）
func (r *Registry) Match(kind Kind) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exact := r.handlers[kind]
	wildcard := r.handlers[KindAny]
	out := make([]Handler, 0, len(exact)+len(wildcard))
	out = append(out, exact...)
	if kind != KindAny {
		out = append(out, wildcard...)
	}
	return out
}

// Kinds 已注册的事件类型（排序）
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Stats 汇总处理器数量
func (r *Registry) Stats(running bool) Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{Running: running, Kinds: make([]string, 0, len(r.handlers))}
	for k, hs := range r.handlers {
		st.HandlerCount += len(hs)
		st.Kinds = append(st.Kinds, string(k))
	}
	sort.Strings(st.Kinds)
	return st
}
