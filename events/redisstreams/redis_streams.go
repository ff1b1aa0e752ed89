// Package redisstreams 基于 Redis Streams 消费组的事件传输
package redisstreams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"recordbin/events"
	"recordbin/logging"
)

// client 传输依赖的 go-redis 命令子集（便于测试替换）
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	Close() error
}

// Config Redis Streams 传输配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	GroupName    string
	ConsumerName string
	BlockTimeout time.Duration
	ReadCount    int64
	// MaxLen 近似裁剪流长度，0 表示不裁剪
	MaxLen int64
	Logger logging.Logger

	MinReadBackoff time.Duration // 默认 100ms
	MaxReadBackoff time.Duration // 默认 5s
}

// Transport 每个事件类型对应一个流，每个流一个读取协程
type Transport struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger
	registry  *events.Registry

	mu      sync.Mutex
	readers map[events.Kind]bool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTransport 创建传输；未提供 Client 时按 Addr 自建连接并在 Close 时关闭
func NewTransport(cfg Config) (*Transport, error) {
	var cl client
	own := false
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis streams: Addr or Client is required")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return newTransport(cfg, cl, own), nil
}

func newTransport(cfg Config, cl client, own bool) *Transport {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "recordbin:"
	}
	if cfg.GroupName == "" {
		cfg.GroupName = "recordbin"
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "consumer-" + uuid.NewString()
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = 10
	}
	if cfg.MinReadBackoff <= 0 {
		cfg.MinReadBackoff = 100 * time.Millisecond
	}
	if cfg.MaxReadBackoff <= 0 {
		cfg.MaxReadBackoff = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Named("events.redisstreams")
	}
	return &Transport{
		cfg:       cfg,
		client:    cl,
		ownClient: own,
		logger:    cfg.Logger,
		registry:  events.NewRegistry(),
		readers:   make(map[events.Kind]bool),
	}
}

// Publish 将事件追加到对应类型的流
func (t *Transport) Publish(ctx context.Context, event events.Event) error {
	args := &redis.XAddArgs{
		Stream: t.streamName(event.Kind),
		Values: events.Values(event),
	}
	if t.cfg.MaxLen > 0 {
		args.MaxLen = t.cfg.MaxLen
		args.Approx = true
	}
	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", args.Stream, err)
	}
	return nil
}

// Subscribe 注册处理器；运行中订阅新类型时立即启动读取协程
func (t *Transport) Subscribe(kind events.Kind, handler events.Handler) error {
	if kind == events.KindAny {
		for _, k := range events.Kinds {
			t.registry.Add(k, handler)
		}
	} else {
		t.registry.Add(kind, handler)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.startReadersLocked()
	}
	return nil
}

// Unsubscribe 移除处理器，读取协程保持运行直到 Close
func (t *Transport) Unsubscribe(kind events.Kind, handler events.Handler) error {
	if kind == events.KindAny {
		for _, k := range events.Kinds {
			t.registry.Remove(k, handler)
		}
		return nil
	}
	t.registry.Remove(kind, handler)
	return nil
}

// Start 为已注册的事件类型启动消费
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("redis streams transport already running")
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.running = true
	t.startReadersLocked()
	return nil
}

// Close 停止消费；自建的客户端一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	cancel := t.cancel
	t.running = false
	t.cancel = nil
	t.readers = make(map[events.Kind]bool)
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
	if t.ownClient {
		return t.client.Close()
	}
	return nil
}

// Stats 返回统计信息
func (t *Transport) Stats() events.Stats {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	return t.registry.Stats(running)
}

func (t *Transport) startReadersLocked() {
	for _, kind := range t.registry.Kinds() {
		if t.readers[kind] {
			continue
		}
		t.readers[kind] = true
		t.wg.Add(1)
		go t.readLoop(t.ctx, kind)
	}
}

func (t *Transport) readLoop(ctx context.Context, kind events.Kind) {
	defer t.wg.Done()
	stream := t.streamName(kind)
	if err := t.ensureGroup(ctx, stream); err != nil {
		t.logger.Warn(ctx, "ensure group failed", logging.String("stream", stream), logging.Error(err))
	}
	args := &redis.XReadGroupArgs{
		Group:    t.cfg.GroupName,
		Consumer: t.cfg.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    t.cfg.ReadCount,
		Block:    t.cfg.BlockTimeout,
	}
	backoff := t.cfg.MinReadBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := t.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			t.logger.Warn(ctx, "xreadgroup failed", logging.Duration("backoff", backoff), logging.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > t.cfg.MaxReadBackoff {
				backoff = t.cfg.MaxReadBackoff
			}
			continue
		}
		backoff = t.cfg.MinReadBackoff
		for _, streamRes := range res {
			for _, entry := range streamRes.Messages {
				t.consume(ctx, streamRes.Stream, entry)
			}
		}
	}
}

// consume 处理单条消息；解码失败与处理失败都会 ACK，避免毒消息阻塞消费组
func (t *Transport) consume(ctx context.Context, stream string, entry redis.XMessage) {
	event, err := events.FromValues(entry.Values)
	if err != nil {
		t.logger.Warn(ctx, "decode redis stream entry failed",
			logging.String("entry_id", entry.ID), logging.Error(err))
	} else {
		if event.ID == "" {
			event.ID = entry.ID
		}
		for _, h := range t.registry.Match(event.Kind) {
			if herr := h.Handle(ctx, event); herr != nil {
				t.logger.Warn(ctx, "event handler failed",
					logging.String("handler", h.Name()),
					logging.String("event_id", event.ID),
					logging.Error(herr))
			}
		}
	}
	if ackErr := t.client.XAck(ctx, stream, t.cfg.GroupName, entry.ID).Err(); ackErr != nil {
		t.logger.Warn(ctx, "xack failed", logging.String("entry_id", entry.ID), logging.Error(ackErr))
	}
}

func (t *Transport) ensureGroup(ctx context.Context, stream string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, t.cfg.GroupName, "0").Err()
	if err == nil || strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP") {
		return nil
	}
	return err
}

func (t *Transport) streamName(kind events.Kind) string {
	return t.cfg.StreamPrefix + string(kind)
}

var _ events.Transport = (*Transport)(nil)
